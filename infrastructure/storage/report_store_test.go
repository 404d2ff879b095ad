package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"selene/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStoreArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)

	path, err := store.SaveScreenshot("20240101-120000-1", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240101-120000-1.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	path, err = store.SavePageSource("failure", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "failure.html"), path)
}

func TestReportStoreSanitizesNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)

	path, err := store.SaveScreenshot("../browser.element('p')", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
}

func TestReportStoreHistory(t *testing.T) {
	store, err := NewReportStore(filepath.Join(t.TempDir(), "nested", "reports"))
	require.NoError(t, err)

	history, err := store.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	saved := []entities.ActionResult{
		{
			Action:  entities.Action{Type: entities.ActionClick, Selector: "p >> a"},
			Success: true,
			Message: "clicked",
			Elapsed: 300 * time.Millisecond,
			PageInfo: &entities.PageInfo{
				URL:   "http://selene.test/page.html#second",
				Title: "Selene Test Page",
			},
		},
		{
			Action: entities.Action{Type: entities.ActionOpen, URL: "/missing"},
			Error:  "failed to open",
		},
	}
	require.NoError(t, store.SaveHistory(saved))

	loaded, err := store.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestReportStoreKeepsNewestHistory(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	var history []entities.ActionResult
	for i := 0; i < entities.MaxHistory+20; i++ {
		history = append(history, entities.ActionResult{Message: fmt.Sprintf("step %d", i)})
	}
	require.NoError(t, store.SaveHistory(history))

	loaded, err := store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, loaded, entities.MaxHistory)
	assert.Equal(t, "step 20", loaded[0].Message)
	assert.Equal(t, fmt.Sprintf("step %d", entities.MaxHistory+19), loaded[len(loaded)-1].Message)
}

func TestReportStoreCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte("{"), 0644))

	_, err = store.LoadHistory()
	assert.Error(t, err)
}
