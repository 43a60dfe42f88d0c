package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campusboard/core/notice"
)

type noticeDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	Category  string    `bson:"category"`
	ImageURL  string    `bson:"image_url,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	AuthorID  string    `bson:"author_id"`
}

func (d noticeDoc) unwrap() notice.Notice {
	return notice.Notice{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		Category:  notice.Category(d.Category),
		ImageURL:  d.ImageURL,
		CreatedAt: d.CreatedAt.UTC(),
		AuthorID:  d.AuthorID,
	}
}

type noticeRepository struct {
	coll *mongo.Collection
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *mongo.Database) notice.Repository {
	return &noticeRepository{coll: db.Collection(noticeCollection)}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	doc := noticeDoc{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Category:  string(n.Category),
		ImageURL:  n.ImageURL,
		CreatedAt: n.CreatedAt.UTC(),
		AuthorID:  n.AuthorID,
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return notice.Notice{}, trapErr(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, category notice.Category) ([]notice.Notice, error) {
	query := bson.M{}
	if category != "" {
		query["category"] = string(category)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, trapErr(err, "querying notices")
	}
	var docs []noticeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, trapErr(err, "decoding notices")
	}
	notices := make([]notice.Notice, 0, len(docs))
	for _, d := range docs {
		notices = append(notices, d.unwrap())
	}
	return notices, nil
}

func (repo *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	var doc noticeDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notice.Notice{}, notice.ErrNotFound
		}
		return notice.Notice{}, trapErr(err, "finding notice")
	}
	return doc.unwrap(), nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return trapErr(err, "deleting notice")
	}
	if res.DeletedCount == 0 {
		return notice.ErrNotFound
	}
	return nil
}
