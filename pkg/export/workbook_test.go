package export_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/export"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook_OneSheetPerTable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{
		Source:    domain.Ptr("telegram"),
		FirstName: domain.Ptr("Ann"),
	})
	require.NoError(t, err)
	_, err = store.AppendAnswer(ctx, "telegram_1", 1, "no")
	require.NoError(t, err)
	_, err = store.AppendAnswer(ctx, "telegram_1", 0, "Can I bring my dog?")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteWorkbook(ctx, store, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"users", "answers"}, f.GetSheetList())

	users, err := f.GetRows("users")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, ports.UserColumns, users[0])
	assert.Equal(t, "telegram_1", users[1][0])
	assert.Equal(t, "Ann", users[1][2])

	answers, err := f.GetRows("answers")
	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Equal(t, ports.AnswerColumns, answers[0])
	assert.Equal(t, "no", answers[1][3])
	assert.Equal(t, "Can I bring my dog?", answers[2][3])
}
