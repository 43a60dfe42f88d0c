package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/policy"
)

type sessionDoc struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	Role      string     `bson:"role"`
	IssuedAt  time.Time  `bson:"issued_at"`
	ExpiresAt time.Time  `bson:"expires_at"`
	RevokedAt *time.Time `bson:"revoked_at"`
}

func (d sessionDoc) unwrap() auth.Session {
	sess := auth.Session{
		ID:        d.ID,
		UserID:    d.UserID,
		Role:      policy.Role(d.Role),
		IssuedAt:  d.IssuedAt.UTC(),
		ExpiresAt: d.ExpiresAt.UTC(),
	}
	if d.RevokedAt != nil {
		sess.RevokedAt = d.RevokedAt.UTC()
	}
	return sess
}

type sessionRepository struct {
	coll *mongo.Collection
}

var _ auth.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *mongo.Database) auth.Repository {
	return &sessionRepository{coll: db.Collection(sessionCollection)}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess auth.Session) error {
	doc := sessionDoc{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Role:      string(sess.Role),
		IssuedAt:  sess.IssuedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if sess.IsRevoked() {
		revokedAt := sess.RevokedAt.UTC()
		doc.RevokedAt = &revokedAt
	}
	_, err := repo.coll.InsertOne(ctx, doc)
	return trapErr(err, "inserting session")
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (auth.Session, error) {
	var doc sessionDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, trapErr(err, "finding session")
	}
	return doc.unwrap(), nil
}

func (repo *sessionRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	_, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": at.UTC()}},
	)
	return trapErr(err, "revoking session")
}

func (repo *sessionRepository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	_, err := repo.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": at.UTC()}},
	)
	return trapErr(err, "revoking user sessions")
}

func (repo *sessionRepository) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"revoked_at": bson.M{"$ne": nil}},
		bson.M{"expires_at": bson.M{"$lte": now.UTC()}},
	}})
	if err != nil {
		return 0, trapErr(err, "purging sessions")
	}
	return int(res.DeletedCount), nil
}
