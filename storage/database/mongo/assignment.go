package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campusboard/core/assignment"
)

type assignmentDoc struct {
	ID          string    `bson:"_id"`
	StudentID   string    `bson:"student_id"`
	Title       string    `bson:"title"`
	Content     string    `bson:"content"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

func (d assignmentDoc) unwrap() assignment.Assignment {
	return assignment.Assignment{
		ID:          d.ID,
		StudentID:   d.StudentID,
		Title:       d.Title,
		Content:     d.Content,
		SubmittedAt: d.SubmittedAt.UTC(),
	}
}

type assignmentRepository struct {
	coll *mongo.Collection
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *mongo.Database) assignment.Repository {
	return &assignmentRepository{coll: db.Collection(assignmentCollection)}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	doc := assignmentDoc{
		ID:          a.ID,
		StudentID:   a.StudentID,
		Title:       a.Title,
		Content:     a.Content,
		SubmittedAt: a.SubmittedAt.UTC(),
	}
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return assignment.Assignment{}, trapErr(err, "inserting assignment")
	}
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	query := bson.M{}
	if studentID != "" {
		query["student_id"] = studentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, trapErr(err, "querying assignments")
	}
	var docs []assignmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, trapErr(err, "decoding assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(docs))
	for _, d := range docs {
		assignments = append(assignments, d.unwrap())
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var doc assignmentDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, trapErr(err, "finding assignment")
	}
	return doc.unwrap(), nil
}
