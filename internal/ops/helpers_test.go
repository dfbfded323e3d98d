package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/db"
	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/fields"
)

const testOwner = "ana@example.com"

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	svc, err := New(db.NewStore(database), nil, cfg, WithExportsDir(filepath.Join(baseDir, "exports")))
	require.NoError(t, err)
	return svc
}

func createForm(t *testing.T, svc *Service, name string) string {
	t.Helper()
	out, err := svc.CreateForm(context.Background(), CreateInput{Owner: testOwner, Name: name})
	require.NoError(t, err)
	return out.ID
}

func drop(t *testing.T, svc *Service, formID string, src DropInput) *DropOutput {
	t.Helper()
	src.Owner = testOwner
	src.ID = formID
	out, err := svc.ApplyDrop(context.Background(), src)
	require.NoError(t, err)
	return out
}

func paletteDrop(t fields.FieldType, target, targetID string) DropInput {
	return DropInput{Source: designer.PaletteSource(t), Target: target, TargetID: targetID}
}

func elementIDs(elements []fields.Element) []string {
	out := make([]string, len(elements))
	for i, el := range elements {
		out[i] = el.ID
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
