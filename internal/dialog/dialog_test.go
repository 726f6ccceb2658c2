package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

type fakeBackend struct {
	messageResult string
	files         []string
	err           error

	lastMessage wailsRuntime.MessageDialogOptions
	lastOpen    wailsRuntime.OpenDialogOptions
	lastSave    wailsRuntime.SaveDialogOptions
	calls       []string
}

func (f *fakeBackend) MessageDialog(ctx context.Context, opts wailsRuntime.MessageDialogOptions) (string, error) {
	f.calls = append(f.calls, "message")
	f.lastMessage = opts
	return f.messageResult, f.err
}

func (f *fakeBackend) OpenFileDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error) {
	f.calls = append(f.calls, "open")
	f.lastOpen = opts
	if len(f.files) == 0 {
		return "", f.err
	}
	return f.files[0], f.err
}

func (f *fakeBackend) OpenMultipleFilesDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) ([]string, error) {
	f.calls = append(f.calls, "open-multiple")
	f.lastOpen = opts
	return f.files, f.err
}

func (f *fakeBackend) OpenDirectoryDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error) {
	f.calls = append(f.calls, "open-directory")
	f.lastOpen = opts
	if len(f.files) == 0 {
		return "", f.err
	}
	return f.files[0], f.err
}

func (f *fakeBackend) SaveFileDialog(ctx context.Context, opts wailsRuntime.SaveDialogOptions) (string, error) {
	f.calls = append(f.calls, "save")
	f.lastSave = opts
	if len(f.files) == 0 {
		return "", f.err
	}
	return f.files[0], f.err
}

func newTestDialog(t *testing.T, fb *fakeBackend) *Dialog {
	t.Helper()
	d := New(zerolog.Nop())
	d.backend = fb
	require.NoError(t, d.Init(context.Background()))
	return d
}

func TestDialogNotReadyBeforeInit(t *testing.T) {
	d := New(zerolog.Nop())
	d.backend = &fakeBackend{}

	_, err := d.Confirm("", "删除?")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, d.Message("", "hi", KindInfo), ErrNotReady)

	require.NoError(t, d.Init(context.Background()))
	require.NoError(t, d.Close())
	_, err = d.Save(SaveOptions{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestConfirmResults(t *testing.T) {
	tests := []struct {
		result string
		want   bool
	}{
		{"Ok", true},
		{"OK", true},
		{"Yes", true},
		{"Cancel", false},
		{"No", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			fb := &fakeBackend{messageResult: tt.result}
			d := newTestDialog(t, fb)

			got, err := d.Confirm("", "确定删除该用例吗？")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			assert.Equal(t, wailsRuntime.QuestionDialog, fb.lastMessage.Type)
			assert.Equal(t, DefaultTitle, fb.lastMessage.Title)
			assert.Equal(t, []string{"Ok", "Cancel"}, fb.lastMessage.Buttons)
			assert.Equal(t, "Cancel", fb.lastMessage.CancelButton)
		})
	}
}

func TestAskUsesYesNo(t *testing.T) {
	fb := &fakeBackend{messageResult: "Yes"}
	d := newTestDialog(t, fb)

	ok, err := d.Ask("Update", "Install now?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Update", fb.lastMessage.Title)
	assert.Equal(t, []string{"Yes", "No"}, fb.lastMessage.Buttons)
}

func TestQuestionBackendError(t *testing.T) {
	fb := &fakeBackend{err: errors.New("no display")}
	d := newTestDialog(t, fb)

	ok, err := d.Confirm("", "x")
	assert.False(t, ok)
	assert.EqualError(t, err, "no display")
}

func TestMessageKinds(t *testing.T) {
	tests := []struct {
		kind Kind
		want wailsRuntime.DialogType
	}{
		{KindInfo, wailsRuntime.InfoDialog},
		{KindWarning, wailsRuntime.WarningDialog},
		{"ERROR", wailsRuntime.ErrorDialog},
		{"unknown", wailsRuntime.InfoDialog},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			fb := &fakeBackend{}
			d := newTestDialog(t, fb)

			require.NoError(t, d.Message("Title", "body", tt.kind))
			assert.Equal(t, tt.want, fb.lastMessage.Type)
			assert.Equal(t, "body", fb.lastMessage.Message)
		})
	}
}

func TestOpenModes(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		fb := &fakeBackend{files: []string{"/tmp/cases.json"}}
		d := newTestDialog(t, fb)

		paths, err := d.Open(OpenOptions{
			Title:       "Import",
			DefaultPath: "/tmp/cases.json",
			Filters:     []Filter{{Name: "JSON", Extensions: []string{"json", ".txt", ""}}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/tmp/cases.json"}, paths)
		assert.Equal(t, []string{"open"}, fb.calls)
		assert.Equal(t, "/tmp", fb.lastOpen.DefaultDirectory)
		assert.Equal(t, "cases.json", fb.lastOpen.DefaultFilename)
		require.Len(t, fb.lastOpen.Filters, 1)
		assert.Equal(t, "*.json;*.txt", fb.lastOpen.Filters[0].Pattern)
	})

	t.Run("multiple", func(t *testing.T) {
		fb := &fakeBackend{files: []string{"/a.json", "/b.json"}}
		d := newTestDialog(t, fb)

		paths, err := d.Open(OpenOptions{Multiple: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"/a.json", "/b.json"}, paths)
		assert.Equal(t, []string{"open-multiple"}, fb.calls)
	})

	t.Run("directory", func(t *testing.T) {
		fb := &fakeBackend{files: []string{"/home/me/exports"}}
		d := newTestDialog(t, fb)

		paths, err := d.Open(OpenOptions{Directory: true, DefaultPath: "/home/me"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/home/me/exports"}, paths)
		assert.Equal(t, []string{"open-directory"}, fb.calls)
		assert.Equal(t, "/home/me", fb.lastOpen.DefaultDirectory)
	})

	t.Run("cancelled", func(t *testing.T) {
		fb := &fakeBackend{}
		d := newTestDialog(t, fb)

		paths, err := d.Open(OpenOptions{})
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestSave(t *testing.T) {
	fb := &fakeBackend{files: []string{"/tmp/out/cases.xlsx"}}
	d := newTestDialog(t, fb)

	path, err := d.Save(SaveOptions{
		DefaultPath: "/tmp/out/cases.xlsx",
		Filters:     []Filter{{Name: "Excel", Extensions: []string{"xlsx"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out/cases.xlsx", path)
	assert.Equal(t, "cases.xlsx", fb.lastSave.DefaultFilename)
	assert.True(t, fb.lastSave.CanCreateDirectories)
}
