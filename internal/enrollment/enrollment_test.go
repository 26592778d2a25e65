package enrollment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/biometric/mock"
	"github.com/kozaktomas/spyhole/internal/gallery"
)

type fakeAccounts struct {
	existing map[string]bool
	err      error
}

func (f *fakeAccounts) Exists(_ context.Context, username string) (bool, error) {
	return f.existing[username], f.err
}

type testEnv struct {
	dir       string
	store     *DiskStore
	extractor *mock.Extractor
	gallery   *gallery.Gallery
	workflow  *Workflow
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "known")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)
	ext := mock.NewExtractor()
	g := gallery.New(0)
	return &testEnv{
		dir:       dir,
		store:     store,
		extractor: ext,
		gallery:   g,
		workflow:  NewWorkflow(store, ext, g, opts...),
	}
}

func (e *testEnv) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestEnroll_Success(t *testing.T) {
	env := newTestEnv(t)
	img := mock.PNG(1)
	env.extractor.AddFace(img, biometric.Embedding{0, 0})

	res := env.workflow.Enroll(context.Background(), "alice", "portrait.PNG", img)

	assert.True(t, res.Success)
	assert.Equal(t, MsgEnrolled, res.Message)
	assert.Equal(t, "alice", res.Label)
	assert.Equal(t, "alice.png", res.Filename)
	assert.False(t, res.Replaced)
	assert.Equal(t, []string{"alice"}, env.gallery.Labels())
	assert.Equal(t, []string{"alice.png"}, env.files(t))

	stored, err := os.ReadFile(filepath.Join(env.dir, "alice.png"))
	require.NoError(t, err)
	assert.Equal(t, img, stored)
}

func TestEnroll_NoFaceRollsBack(t *testing.T) {
	env := newTestEnv(t)

	res := env.workflow.Enroll(context.Background(), "carol", "carol.jpg", mock.JPEG(3, 8, 8))

	assert.False(t, res.Success)
	assert.Equal(t, MsgNoFace, res.Message)
	assert.True(t, env.gallery.IsEmpty())
	assert.Empty(t, env.files(t))

	g := gallery.New(0)
	_, err := g.LoadAll(context.Background(), env.dir, env.extractor)
	require.NoError(t, err)
	assert.True(t, g.IsEmpty(), "bootstrap must not resurrect a rolled-back enrollment")
}

func TestEnroll_InvalidImageRollsBack(t *testing.T) {
	env := newTestEnv(t)

	res := env.workflow.Enroll(context.Background(), "dave", "dave.jpg", []byte("not an image"))

	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidImage, res.Message)
	assert.True(t, env.gallery.IsEmpty())
	assert.Empty(t, env.files(t))
}

func TestEnroll_ExtractorFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.ExtractError = errors.New("model crashed")

	res := env.workflow.Enroll(context.Background(), "erin", "erin.png", mock.PNG(5))

	assert.False(t, res.Success)
	assert.Equal(t, MsgProcessingFailed, res.Message)
	assert.True(t, env.gallery.IsEmpty())
	assert.Empty(t, env.files(t))
}

func TestEnroll_InvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"alice.gif", "alice", "alice.jpg.exe"} {
		res := env.workflow.Enroll(context.Background(), "alice", name, mock.PNG(1))
		assert.False(t, res.Success, name)
		assert.Equal(t, MsgInvalidFormat, res.Message, name)
	}
	assert.Equal(t, 0, env.extractor.Calls())
	assert.Empty(t, env.files(t))
}

func TestEnroll_InvalidLabel(t *testing.T) {
	env := newTestEnv(t)

	res := env.workflow.Enroll(context.Background(), "../..", "x.png", mock.PNG(1))
	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidLabel, res.Message)
	assert.Empty(t, env.files(t))
}

func TestEnroll_SanitizesLabel(t *testing.T) {
	env := newTestEnv(t)
	img := mock.PNG(1)
	env.extractor.AddFace(img, biometric.Embedding{0, 0})

	res := env.workflow.Enroll(context.Background(), "../Jiří Novák", "photo.png", img)

	require.True(t, res.Success)
	assert.Equal(t, "Jiri_Novak", res.Label)
	assert.Equal(t, []string{"Jiri_Novak.png"}, env.files(t))
	assert.Equal(t, []string{"Jiri_Novak"}, env.gallery.Labels())
}

func TestEnroll_DuplicateAccount(t *testing.T) {
	env := newTestEnv(t, WithAccountChecker(&fakeAccounts{existing: map[string]bool{"alice": true}}))

	res := env.workflow.Enroll(context.Background(), "alice", "alice.png", mock.PNG(1))
	assert.False(t, res.Success)
	assert.Equal(t, MsgDuplicate, res.Message)
	assert.Equal(t, 0, env.extractor.Calls())
}

func TestEnroll_AccountLookupError(t *testing.T) {
	env := newTestEnv(t, WithAccountChecker(&fakeAccounts{err: errors.New("db down")}))

	res := env.workflow.Enroll(context.Background(), "alice", "alice.png", mock.PNG(1))
	assert.False(t, res.Success)
	assert.Equal(t, MsgProcessingFailed, res.Message)
}

func TestEnroll_ReEnrollmentReplacesTemplateAndPhoto(t *testing.T) {
	env := newTestEnv(t)
	first := mock.JPEG(1, 8, 8)
	second := mock.PNG(2)
	env.extractor.AddFace(first, biometric.Embedding{0, 0})
	env.extractor.AddFace(second, biometric.Embedding{0.5, 0.5})

	require.True(t, env.workflow.Enroll(context.Background(), "alice", "a.jpg", first).Success)
	res := env.workflow.Enroll(context.Background(), "alice", "b.png", second)

	require.True(t, res.Success)
	assert.True(t, res.Replaced)
	assert.Equal(t, 1, env.gallery.Len())
	assert.Equal(t, biometric.Embedding{0.5, 0.5}, env.gallery.Snapshot()[0].Embedding)
	assert.Equal(t, []string{"alice.png"}, env.files(t), "older photo with another extension is removed")
}

func TestEnroll_DimensionMismatchRollsBack(t *testing.T) {
	env := newTestEnv(t)
	a := mock.PNG(1)
	b := mock.PNG(2)
	env.extractor.AddFace(a, biometric.Embedding{0, 0})
	env.extractor.AddFace(b, biometric.Embedding{0, 0, 0})

	require.True(t, env.workflow.Enroll(context.Background(), "alice", "a.png", a).Success)
	res := env.workflow.Enroll(context.Background(), "bob", "b.png", b)

	assert.False(t, res.Success)
	assert.Equal(t, MsgProcessingFailed, res.Message)
	assert.Equal(t, []string{"alice"}, env.gallery.Labels())
	assert.Equal(t, []string{"alice.png"}, env.files(t))
}

type failingStore struct{ *DiskStore }

func (failingStore) Save(string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestEnroll_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	wf := NewWorkflow(failingStore{env.store}, env.extractor, env.gallery)

	res := wf.Enroll(context.Background(), "alice", "alice.png", mock.PNG(1))
	assert.False(t, res.Success)
	assert.Equal(t, MsgStorageFailed, res.Message)
	assert.Equal(t, 0, env.extractor.Calls())
}

func TestEnroll_CollidingUsernamesRejected(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
	}{
		{name: "ascii after accented", first: "Jiří", second: "Jiri"},
		{name: "accented after ascii", first: "Jiri", second: "Jiří"},
		{name: "whitespace variant", first: "bob smith", second: "bob_smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, WithAccountChecker(&fakeAccounts{}))
			a := mock.PNG(1)
			b := mock.PNG(2)
			env.extractor.AddFace(a, biometric.Embedding{0, 0})
			env.extractor.AddFace(b, biometric.Embedding{5, 5})

			first := env.workflow.Enroll(context.Background(), tt.first, "a.png", a)
			require.True(t, first.Success)

			res := env.workflow.Enroll(context.Background(), tt.second, "b.png", b)
			assert.False(t, res.Success)
			assert.Equal(t, MsgDuplicate, res.Message)

			require.Equal(t, 1, env.gallery.Len())
			assert.Equal(t, biometric.Embedding{0, 0}, env.gallery.Snapshot()[0].Embedding)
			stored, err := os.ReadFile(filepath.Join(env.dir, first.Filename))
			require.NoError(t, err)
			assert.Equal(t, a, stored, "first identity's photo must be kept")
		})
	}
}

func TestEnroll_StemOnDiskRejectedForAccounts(t *testing.T) {
	env := newTestEnv(t, WithAccountChecker(&fakeAccounts{}))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "bob.jpg"), mock.JPEG(9, 8, 8), 0o644))
	img := mock.PNG(2)
	env.extractor.AddFace(img, biometric.Embedding{1, 1})

	res := env.workflow.Enroll(context.Background(), "bob", "bob.png", img)

	assert.False(t, res.Success)
	assert.Equal(t, MsgDuplicate, res.Message)
	assert.Equal(t, 0, env.extractor.Calls())
	assert.Equal(t, []string{"bob.jpg"}, env.files(t))
}

func TestUnenroll(t *testing.T) {
	env := newTestEnv(t)
	a := mock.PNG(1)
	b := mock.PNG(2)
	env.extractor.AddFace(a, biometric.Embedding{0, 0})
	env.extractor.AddFace(b, biometric.Embedding{1, 1})

	require.True(t, env.workflow.Enroll(context.Background(), "alice", "a.png", a).Success)
	res := env.workflow.Enroll(context.Background(), "bob", "b.png", b)
	require.True(t, res.Success)

	require.NoError(t, env.workflow.Unenroll(res))

	assert.Equal(t, []string{"alice"}, env.gallery.Labels())
	assert.Equal(t, []string{"alice.png"}, env.files(t))

	// The label is free again.
	assert.True(t, env.workflow.Enroll(context.Background(), "bob", "b.png", b).Success)
}

func TestUnenroll_IgnoresFailedResult(t *testing.T) {
	env := newTestEnv(t)
	img := mock.PNG(1)
	env.extractor.AddFace(img, biometric.Embedding{0, 0})
	require.True(t, env.workflow.Enroll(context.Background(), "alice", "a.png", img).Success)

	require.NoError(t, env.workflow.Unenroll(Result{Message: MsgNoFace, Label: "alice", Filename: "alice.png"}))

	assert.Equal(t, []string{"alice"}, env.gallery.Labels())
	assert.Equal(t, []string{"alice.png"}, env.files(t))
}
