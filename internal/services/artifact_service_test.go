package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	if m.failPut {
		return "", errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = b
	return "https://" + bucket + ".example.test/" + key, nil
}

func (m *memoryObjects) DeleteFile(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memoryObjects) GetObjectReader(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func seedInteraction(t *testing.T, env *testEnv) *models.Interaction {
	t.Helper()
	sess, err := env.sessions.Create(context.Background(), env.principal, CreateSessionInput{})
	require.NoError(t, err)
	in, err := env.sessions.AppendInteraction(context.Background(), env.principal, sess.ID, AppendInteractionInput{
		Type: models.InteractionToolResult, Content: "chart rendered",
	})
	require.NoError(t, err)
	return in
}

func TestArtifactUploadAndList(t *testing.T) {
	env := newTestEnv(t, 0)
	store := newMemoryObjects()
	svc := NewArtifactService(env.db, env.sessions, store, "artifacts")
	in := seedInteraction(t, env)

	a, err := svc.Upload(context.Background(), env.principal, UploadArtifactInput{
		InteractionID: in.ID,
		Type:          "image",
		Name:          "chart.png",
		ContentType:   "image/png",
		Size:          4,
		Body:          strings.NewReader("\x89PNG"),
	})
	require.NoError(t, err)
	assert.Equal(t, in.SessionID, a.SessionID)
	assert.Equal(t, env.org.ID, a.OrganizationID)
	assert.True(t, strings.HasPrefix(a.StorageURL, "https://artifacts.example.test/orgs/"+env.org.ID+"/sessions/"))

	key, _ := a.Metadata["key"].(string)
	r, err := store.GetObjectReader(context.Background(), "artifacts", key)
	require.NoError(t, err)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "\x89PNG", string(body))

	list, err := svc.List(context.Background(), env.principal, in.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "chart.png", list[0].Name)
}

func TestArtifactUploadRejects(t *testing.T) {
	env := newTestEnv(t, 0)
	in := seedInteraction(t, env)
	ctx := context.Background()

	svc := NewArtifactService(env.db, env.sessions, newMemoryObjects(), "artifacts")
	_, err := svc.Upload(ctx, env.principal, UploadArtifactInput{InteractionID: in.ID, Type: "video", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Upload(ctx, env.principal, UploadArtifactInput{InteractionID: "missing", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, core.ErrInteractionNotFound)

	stranger := core.Principal{UserID: "u9", OrganizationID: "other"}
	_, err = svc.List(ctx, stranger, in.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	disabled := NewArtifactService(env.db, env.sessions, nil, "artifacts")
	_, err = disabled.Upload(ctx, env.principal, UploadArtifactInput{InteractionID: in.ID, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, core.ErrStorageDisabled)

	failing := newMemoryObjects()
	failing.failPut = true
	_, err = NewArtifactService(env.db, env.sessions, failing, "artifacts").
		Upload(ctx, env.principal, UploadArtifactInput{InteractionID: in.ID, Name: "a.txt", Body: strings.NewReader("x")})
	require.Error(t, err)

	list, err := svc.List(ctx, env.principal, in.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArtifactOpen(t *testing.T) {
	env := newTestEnv(t, 0)
	store := newMemoryObjects()
	svc := NewArtifactService(env.db, env.sessions, store, "artifacts")
	in := seedInteraction(t, env)
	ctx := context.Background()

	a, err := svc.Upload(ctx, env.principal, UploadArtifactInput{
		InteractionID: in.ID,
		Type:          "code",
		Name:          "main.go",
		ContentType:   "text/x-go",
		Body:          strings.NewReader("package main"),
	})
	require.NoError(t, err)

	colleague := core.Principal{UserID: "user-2", OrganizationID: env.org.ID}
	got, body, err := svc.Open(ctx, colleague, a.ID)
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "package main", string(content))
	assert.Equal(t, "text/x-go", got.ContentType)

	stranger := core.Principal{UserID: "u9", OrganizationID: "other"}
	_, _, err = svc.Open(ctx, stranger, a.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	_, _, err = svc.Open(ctx, env.principal, "missing")
	assert.ErrorIs(t, err, core.ErrArtifactNotFound)

	_, _, err = NewArtifactService(env.db, env.sessions, nil, "artifacts").Open(ctx, env.principal, a.ID)
	assert.ErrorIs(t, err, core.ErrStorageDisabled)
}
