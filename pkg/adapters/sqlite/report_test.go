package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/suite"
)

// ReportingSuite covers the aggregate and dump queries over a seeded database.
type ReportingSuite struct {
	suite.Suite
	ctx   context.Context
	store *sqlite.Store
	at    time.Time
}

func TestReportingSuite(t *testing.T) {
	suite.Run(t, new(ReportingSuite))
}

func (s *ReportingSuite) SetupTest() {
	s.ctx = context.Background()
	s.at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	store, err := sqlite.Open(s.ctx, filepath.Join(s.T().TempDir(), "intake.db"),
		sqlite.WithClock(func() time.Time { return s.at }))
	s.Require().NoError(err)
	s.store = store

	s.seed("telegram_1", "telegram", 0, true)
	s.seed("telegram_2", "telegram", 3, false)
	s.seed("whatsapp_3", "whatsapp", 2, true)

	_, err = s.store.AppendAnswer(s.ctx, "telegram_2", 1, "yes")
	s.Require().NoError(err)
	_, err = s.store.AppendAnswer(s.ctx, "telegram_2", 0, "Can I bring my family?")
	s.Require().NoError(err)
}

func (s *ReportingSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *ReportingSuite) seed(id, source string, progress int, active bool) {
	_, err := s.store.UpsertUser(s.ctx, id, domain.UserPatch{
		Source:   domain.Ptr(source),
		Progress: domain.Ptr(progress),
		IsActive: domain.Ptr(active),
	})
	s.Require().NoError(err)
}

func (s *ReportingSuite) TestAggregateCounts() {
	c, err := s.store.AggregateCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, c.Total)
	s.Equal(map[string]int{"telegram": 2, "whatsapp": 1}, c.BySource)
	s.Equal(2, c.Incomplete)
	s.Equal(2, c.Active)
	s.Equal(1, c.Blocked)
}

func (s *ReportingSuite) TestListUserIDsBySource() {
	ids, err := s.store.ListUserIDs(s.ctx, "telegram")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"telegram_1"}, ids)

	ids, err = s.store.ListUserIDs(s.ctx, "whatsapp")
	s.Require().NoError(err)
	s.Equal([]string{"whatsapp_3"}, ids)
}

func (s *ReportingSuite) TestDump() {
	tables, err := s.store.Dump(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tables, 2)

	users := tables[0]
	s.Equal(ports.UsersTable, users.Name)
	s.Equal(ports.UserColumns, users.Header)
	s.Require().Len(users.Rows, 3)
	s.Equal("telegram_1", users.Rows[0][0])
	s.Equal("2024-05-01 09:30:00", users.Rows[0][5])

	answers := tables[1]
	s.Equal(ports.AnswersTable, answers.Name)
	s.Equal(ports.AnswerColumns, answers.Header)
	s.Require().Len(answers.Rows, 2)
	s.Equal([]string{"2", "telegram_2", "0", "Can I bring my family?", "2024-05-01 09:30:00"}, answers.Rows[1])
}
