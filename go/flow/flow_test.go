package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giantt-project/convergent/go/schema/taskgraph"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	var dir = t.TempDir()
	var r, err = NewRegistry(dir, "D1", 64, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestInitOpenWriteReadMaterialized(t *testing.T) {
	var r = newTestRegistry(t)
	require.NoError(t, r.Init("f1", SchemaTaskGraph))

	h, err := r.Open("f1")
	require.NoError(t, err)
	defer h.Close()

	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.NoError(t, err)
	_, err = h.WriteLocal(taskgraph.SetTitle("t1", "A Task"))
	require.NoError(t, err)

	doc, err := h.ReadMaterialized()
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)

	item, ok := taskgraph.Project(doc, "t1")
	require.True(t, ok)
	require.Equal(t, "A Task", item.Title)
}

func TestOpenCreatesUnknownFlow(t *testing.T) {
	var r = newTestRegistry(t)
	h, err := r.Open("nope")
	require.NoError(t, err)
	defer h.Close()

	flows, err := r.List()
	require.NoError(t, err)
	require.Contains(t, flows, "nope")

	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.NoError(t, err)
}

func TestWriteLocalAfterCloseFails(t *testing.T) {
	var r = newTestRegistry(t)
	require.NoError(t, r.Init("f1", SchemaTaskGraph))
	h, err := r.Open("f1")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.ErrorIs(t, err, ErrFlowClosed)
}

func TestApplyRemoteIsIdempotent(t *testing.T) {
	var r = newTestRegistry(t)
	require.NoError(t, r.Init("f1", SchemaTaskGraph))
	h, err := r.Open("f1")
	require.NoError(t, err)
	defer h.Close()

	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.NoError(t, err)
	ops, err := h.GetOperations()
	require.NoError(t, err)

	added1, err := h.ApplyRemote(ops)
	require.NoError(t, err)
	require.Equal(t, 0, added1) // already present locally

	added2, err := h.ApplyRemote(ops)
	require.NoError(t, err)
	require.Equal(t, 0, added2)
}

func TestReadDripTaskGraph(t *testing.T) {
	var r = newTestRegistry(t)
	require.NoError(t, r.Init("f1", SchemaTaskGraph))
	h, err := r.Open("f1")
	require.NoError(t, err)
	defer h.Close()

	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.NoError(t, err)
	_, err = h.WriteLocal(taskgraph.SetTitle("t1", "Drip Me"))
	require.NoError(t, err)

	out, err := h.ReadDrip()
	require.NoError(t, err)
	require.True(t, strings.Contains(string(out), "Drip Me"))
}

func TestCleanupRefusesWhileOpen(t *testing.T) {
	var r = newTestRegistry(t)
	require.NoError(t, r.Init("f1", SchemaTaskGraph))
	h, err := r.Open("f1")
	require.NoError(t, err)
	defer h.Close()

	require.Error(t, r.Cleanup("f1"))
}

func TestCleanupRemovesLogFile(t *testing.T) {
	var dir = t.TempDir()
	var r, err = NewRegistry(dir, "D1", 64, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Init("f1", SchemaTaskGraph))
	h, err := r.Open("f1")
	require.NoError(t, err)
	_, err = h.WriteLocal(taskgraph.NewGianttItem("t1"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	require.NoError(t, r.Cleanup("f1"))

	var _, statErr = os.Stat(filepath.Join(dir, "f1.ndjson"))
	require.True(t, os.IsNotExist(statErr))
}
