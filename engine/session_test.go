package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/healtop/model"
)

func proc(pid string) model.ManualOption {
	return model.ManualOption{Kind: model.OptionProcess, PID: pid, Command: "cmd-" + pid}
}

func action(id string) model.ManualOption {
	return model.ManualOption{Kind: model.OptionAction, ActionID: id, Name: id}
}

func file(path string, safe bool) model.ManualOption {
	return model.ManualOption{Kind: model.OptionFile, Path: path, Safe: safe}
}

func values(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value()
	}
	return out
}

func TestRows_Ordering(t *testing.T) {
	memOpts := []model.ManualOption{action("clear_cache"), proc("10"), action("second_cache"), proc("11")}
	diskOpts := []model.ManualOption{file("/var/log/a.log", true), action("clear_package_cache"), file("/home/u/b.bin", false)}

	assert.Equal(t, []string{"10", "11"}, values(Rows(model.ResourceCPU, []model.ManualOption{proc("10"), action("x"), proc("11")})))
	assert.Equal(t, []string{"10", "11", model.MemoryCacheValue}, values(Rows(model.ResourceMemory, memOpts)))
	assert.Equal(t, []string{"clear_package_cache", "/var/log/a.log", "/home/u/b.bin"}, values(Rows(model.ResourceDisk, diskOpts)))
}

func TestSession_SubmitEmptyFailsLocally(t *testing.T) {
	s := OpenSession(1, model.ResourceCPU)
	require.True(t, s.Load(1, []model.ManualOption{proc("10")}))

	sel, err := s.Submit()
	assert.Nil(t, sel)
	assert.True(t, errors.Is(err, ErrEmptySelection))
	assert.Equal(t, SessionReady, s.Phase, "a failed local validation keeps the session usable")
}

func TestSession_ToggleAndSubmit(t *testing.T) {
	s := OpenSession(1, model.ResourceDisk)
	require.True(t, s.Load(1, []model.ManualOption{file("/tmp/x", true), action("clear_package_cache")}))

	s.Move(1) // the file, actions come first
	s.Toggle()
	s.Move(-5)
	s.Toggle()
	s.Toggle()
	s.Toggle()

	sel, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, []string{"clear_package_cache", "/tmp/x"}, sel)
	assert.Equal(t, SessionSubmitting, s.Phase)

	_, err = s.Submit()
	assert.True(t, errors.Is(err, ErrSessionBusy))

	s.Abort(errors.New("boom"))
	assert.Equal(t, SessionReady, s.Phase)
	assert.True(t, s.Selected("/tmp/x"), "selection survives a failed submit")
}

func TestSession_LateResultsDropped(t *testing.T) {
	s := OpenSession(2, model.ResourceCPU)
	assert.False(t, s.Load(1, []model.ManualOption{proc("10")}), "result for another session")

	s.Close()
	assert.False(t, s.Load(2, []model.ManualOption{proc("10")}), "result after close")
	assert.False(t, s.Fail(2, errors.New("late")))
	assert.False(t, s.IsOpen())

	s.Close()
	assert.Empty(t, s.Selections())
	_, err := s.Submit()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSession_FetchFailure(t *testing.T) {
	s := OpenSession(3, model.ResourceMemory)
	assert.True(t, s.Fail(3, errors.New("down")))
	assert.Equal(t, SessionFailed, s.Phase)
	_, err := s.Submit()
	assert.True(t, errors.Is(err, ErrOptionsUnavailable))
	assert.False(t, errors.Is(err, ErrSessionBusy))
	assert.Equal(t, SessionFailed, s.Phase)
}
