package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
	"github.com/trezcool/campusboard/storage/database"
	"github.com/trezcool/campusboard/tests"
)

// engines returns a fresh set of repositories per available engine.
// Postgres and mongo run when TEST_DATABASE_URL and TEST_MONGO_URI are set.
func engines(t *testing.T) map[string]func(t *testing.T) *database.Repositories {
	t.Helper()
	res := map[string]func(t *testing.T) *database.Repositories{
		core.EngineMemory: func(t *testing.T) *database.Repositories {
			return connect(t, core.EngineMemory, "")
		},
		core.EngineBolt: func(t *testing.T) *database.Repositories {
			return connect(t, core.EngineBolt, filepath.Join(t.TempDir(), "campusboard.db"))
		},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		res[core.EnginePostgres] = func(t *testing.T) *database.Repositories {
			repos := connect(t, core.EnginePostgres, url)
			require.NoError(t, database.Migrate(repos.SQL, "up"))
			_, err := repos.SQL.Exec(`TRUNCATE "user", notice, assignment, session`)
			require.NoError(t, err)
			return repos
		}
	}
	if uri := os.Getenv("TEST_MONGO_URI"); uri != "" {
		res[core.EngineMongo] = func(t *testing.T) *database.Repositories {
			ctx := context.Background()
			conf := core.NewTestConfig()
			conf.Database.URL = uri
			conf.Database.Name = "campusboard_test"
			client, db, err := database.OpenMongo(ctx, conf)
			require.NoError(t, err)
			require.NoError(t, db.Drop(ctx))
			require.NoError(t, client.Disconnect(ctx))
			return connect(t, core.EngineMongo, uri)
		}
	}
	return res
}

func connect(t *testing.T, engine, url string) *database.Repositories {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = engine
	conf.Database.URL = url
	conf.Database.Name = "campusboard_test"
	repos, err := database.Connect(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}

func TestConnect_UnknownEngine(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Engine = "lol"
	_, err := database.Connect(context.Background(), conf)
	assert.Error(t, err)
}

func TestUserRepository(t *testing.T) {
	for engine, open := range engines(t) {
		t.Run(engine, func(t *testing.T) {
			repos := open(t)
			repo := repos.Users
			ctx := context.Background()
			now := time.Now()

			john := testutil.CreateUser(t, repo, "john", "john@test.cd", "Tq7#vLm2Xp", policy.RoleAdmin, now.Add(-time.Hour))
			jane := testutil.CreateUser(t, repo, "jane", "", "", policy.RoleStudent, now)

			t.Run("uniqueness", func(t *testing.T) {
				assert.ErrorIs(t, repo.CheckUsernameUniqueness(ctx, "john", ""), user.ErrUsernameExists)
				assert.ErrorIs(t, repo.CheckUsernameUniqueness(ctx, "bob", "john@test.cd"), user.ErrEmailExists)
				assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "bob", ""), "empty emails never clash")

				dup := john
				dup.ID = uuid.New().String()
				dup.Email = "other@test.cd"
				_, err := repo.CreateUser(ctx, dup)
				assert.ErrorIs(t, err, user.ErrUsernameExists)

				noEmail := jane
				noEmail.ID = uuid.New().String()
				noEmail.Username = "joan"
				_, err = repo.CreateUser(ctx, noEmail)
				assert.NoError(t, err, "several users may have no email")
			})

			t.Run("get", func(t *testing.T) {
				tests := []struct {
					name   string
					filter user.GetFilter
					want   string
				}{
					{name: "id", filter: user.GetFilter{ID: john.ID}, want: john.ID},
					{name: "username", filter: user.GetFilter{Username: "jane"}, want: jane.ID},
					{name: "email", filter: user.GetFilter{Email: "john@test.cd"}, want: john.ID},
					{name: "username or email (username)", filter: user.GetFilter{UsernameOrEmail: "jane"}, want: jane.ID},
					{name: "username or email (email)", filter: user.GetFilter{UsernameOrEmail: "john@test.cd"}, want: john.ID},
					{name: "unknown id", filter: user.GetFilter{ID: uuid.New().String()}},
					{name: "malformed id", filter: user.GetFilter{ID: "lol"}},
					{name: "empty filter", filter: user.GetFilter{}},
				}
				for _, tt := range tests {
					t.Run(tt.name, func(t *testing.T) {
						got, err := repo.GetUser(ctx, tt.filter)
						if tt.want == "" {
							assert.ErrorIs(t, err, core.ErrNotFound)
							return
						}
						require.NoError(t, err)
						assert.Equal(t, tt.want, got.ID)
					})
				}

				got, err := repo.GetUser(ctx, user.GetFilter{ID: john.ID})
				require.NoError(t, err)
				assert.Equal(t, john, got, "every field is kept")
			})

			t.Run("query", func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, user.QueryFilter{Search: "j"})
				require.NoError(t, err)
				require.Len(t, users, 3)
				assert.Equal(t, john.ID, users[2].ID, "newest first")

				users, err = repo.QueryUsers(ctx, user.QueryFilter{Search: "test.cd"})
				require.NoError(t, err)
				require.Len(t, users, 1)
				assert.Equal(t, john.ID, users[0].ID)

				users, err = repo.QueryUsers(ctx, user.QueryFilter{Role: policy.RoleAdmin})
				require.NoError(t, err)
				require.Len(t, users, 1)
				assert.Equal(t, john.ID, users[0].ID)
			})

			t.Run("set password", func(t *testing.T) {
				updatedAt := core.NowUTC(time.Now).Add(time.Minute)
				got, err := repo.SetUserPassword(ctx, jane.ID, []byte("hash"), updatedAt)
				require.NoError(t, err)
				assert.Equal(t, []byte("hash"), got.PasswordHash)
				assert.True(t, updatedAt.Equal(got.UpdatedAt))

				_, err = repo.SetUserPassword(ctx, uuid.New().String(), []byte("hash"), updatedAt)
				assert.ErrorIs(t, err, core.ErrNotFound)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, repo.DeleteUser(ctx, jane.ID))
				_, err := repo.GetUser(ctx, user.GetFilter{ID: jane.ID})
				assert.ErrorIs(t, err, core.ErrNotFound)
				assert.ErrorIs(t, repo.DeleteUser(ctx, jane.ID), core.ErrNotFound)
			})
		})
	}
}

func TestNoticeRepository(t *testing.T) {
	for engine, open := range engines(t) {
		t.Run(engine, func(t *testing.T) {
			repo := open(t).Notices
			ctx := context.Background()
			now := time.Now()
			author := uuid.New().String()

			exam := testutil.CreateNotice(t, repo, "Exam Schedule", notice.CategoryAcademic, author, now.Add(-2*time.Hour))
			fair := testutil.CreateNotice(t, repo, "Career Fair", notice.CategoryEvents, author, now.Add(-time.Hour))
			grades := testutil.CreateNotice(t, repo, "Grades out", notice.CategoryAcademic, author, now)

			all, err := repo.QueryNotices(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []notice.Notice{grades, fair, exam}, all)

			academic, err := repo.QueryNotices(ctx, notice.CategoryAcademic)
			require.NoError(t, err)
			assert.Equal(t, []notice.Notice{grades, exam}, academic)

			general, err := repo.QueryNotices(ctx, notice.CategoryGeneral)
			require.NoError(t, err)
			assert.Empty(t, general)

			got, err := repo.GetNotice(ctx, fair.ID)
			require.NoError(t, err)
			assert.Equal(t, fair, got)

			require.NoError(t, repo.DeleteNotice(ctx, fair.ID))
			_, err = repo.GetNotice(ctx, fair.ID)
			assert.ErrorIs(t, err, notice.ErrNotFound)
			assert.ErrorIs(t, repo.DeleteNotice(ctx, fair.ID), notice.ErrNotFound)
			assert.ErrorIs(t, repo.DeleteNotice(ctx, "lol"), notice.ErrNotFound)
		})
	}
}

func TestAssignmentRepository(t *testing.T) {
	for engine, open := range engines(t) {
		t.Run(engine, func(t *testing.T) {
			repo := open(t).Assignments
			ctx := context.Background()
			now := time.Now()
			alice, bob := uuid.New().String(), uuid.New().String()

			a1 := testutil.CreateAssignment(t, repo, "Essay", alice, now.Add(-2*time.Hour))
			b1 := testutil.CreateAssignment(t, repo, "Lab report", bob, now.Add(-time.Hour))
			a2 := testutil.CreateAssignment(t, repo, "Project", alice, now)

			all, err := repo.QueryAssignments(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []assignment.Assignment{a2, b1, a1}, all)

			own, err := repo.QueryAssignments(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, []assignment.Assignment{a2, a1}, own)

			got, err := repo.GetAssignment(ctx, b1.ID)
			require.NoError(t, err)
			assert.Equal(t, b1, got)

			_, err = repo.GetAssignment(ctx, uuid.New().String())
			assert.ErrorIs(t, err, assignment.ErrNotFound)
		})
	}
}

func TestSessionRepository(t *testing.T) {
	for engine, open := range engines(t) {
		t.Run(engine, func(t *testing.T) {
			repo := open(t).Sessions
			ctx := context.Background()
			now := core.NowUTC(time.Now)
			uid := uuid.New().String()

			newSession := func(userID string, expiresAt time.Time) auth.Session {
				sess := auth.Session{
					ID:        uuid.New().String(),
					UserID:    userID,
					Role:      policy.RoleStudent,
					IssuedAt:  now,
					ExpiresAt: expiresAt,
				}
				require.NoError(t, repo.CreateSession(ctx, sess))
				return sess
			}
			active := newSession(uid, now.Add(time.Hour))
			other := newSession(uid, now.Add(time.Hour))
			expired := newSession(uuid.New().String(), now.Add(-time.Minute))
			kept := newSession(uuid.New().String(), now.Add(time.Hour))

			got, err := repo.GetSession(ctx, active.ID)
			require.NoError(t, err)
			assert.Equal(t, active, got)
			assert.False(t, got.IsRevoked())

			_, err = repo.GetSession(ctx, uuid.New().String())
			assert.ErrorIs(t, err, auth.ErrSessionNotFound)

			require.NoError(t, repo.RevokeSession(ctx, active.ID, now))
			require.NoError(t, repo.RevokeSession(ctx, active.ID, now.Add(time.Minute)), "revoking twice is a no-op")
			require.NoError(t, repo.RevokeSession(ctx, uuid.New().String(), now), "revoking a missing session is a no-op")
			got, err = repo.GetSession(ctx, active.ID)
			require.NoError(t, err)
			assert.True(t, now.Equal(got.RevokedAt), "the first revocation time is kept")

			require.NoError(t, repo.RevokeUserSessions(ctx, uid, now))
			got, err = repo.GetSession(ctx, other.ID)
			require.NoError(t, err)
			assert.True(t, got.IsRevoked())

			n, err := repo.PurgeSessions(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			for _, id := range []string{active.ID, other.ID, expired.ID} {
				_, err := repo.GetSession(ctx, id)
				assert.ErrorIs(t, err, core.ErrNotFound)
			}
			_, err = repo.GetSession(ctx, kept.ID)
			assert.NoError(t, err)
		})
	}
}
