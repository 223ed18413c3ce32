package session_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/credential"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/server"
	"github.com/nhle/laundry-notifications/internal/session"
	"github.com/nhle/laundry-notifications/internal/store/storetest"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := storetest.NewTestStore(t)
	_, err := st.CreateUser(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(server.Options{Store: st}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func serverConfig(baseURL string) model.ServerConfig {
	return model.ServerConfig{
		BaseURL:    baseURL,
		PagePath:   "/notifications/",
		TimeoutSec: 5,
	}
}

func TestConnect_WithoutCredentialsNeedsLogin(t *testing.T) {
	ts := newServer(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	c := session.New(serverConfig(ts.URL), model.DefaultSurfaceConfig(), creds, nil)

	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, session.ErrLoginRequired)
}

func TestLogin_ThenConnectLoadsPage(t *testing.T) {
	ts := newServer(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	c := session.New(serverConfig("http://unused.invalid"), model.DefaultSurfaceConfig(), creds, nil)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, ts.URL, "alice", "s3cret"))
	assert.Equal(t, ts.URL, c.Server().BaseURL)
	assert.Equal(t, "alice", c.Server().Username)

	stored, err := creds.Session(ts.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	conn, err := c.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, conn.Page.HasElement("notificationsList"))
	assert.NotEmpty(t, conn.Page.FormValue("csrfmiddlewaretoken"))
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newServer(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	c := session.New(serverConfig(ts.URL), model.DefaultSurfaceConfig(), creds, nil)

	err := c.Login(context.Background(), "", "alice", "nope")
	assert.ErrorIs(t, err, session.ErrLoginRequired)

	_, err = creds.Session(ts.URL)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestConnect_ExpiredSessionLogsInAgain(t *testing.T) {
	ts := newServer(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	require.NoError(t, creds.SetSession(ts.URL, "stale"))
	require.NoError(t, creds.SetPassword(ts.URL, "alice", "s3cret"))

	cfg := serverConfig(ts.URL)
	cfg.Username = "alice"
	c := session.New(cfg, model.DefaultSurfaceConfig(), creds, nil)

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.Page.HasElement("notificationsDropdown"))

	fresh, err := creds.Session(ts.URL)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", fresh)
}

func TestLogout_ForgetsSession(t *testing.T) {
	ts := newServer(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	c := session.New(serverConfig(ts.URL), model.DefaultSurfaceConfig(), creds, nil)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "", "alice", "s3cret"))
	conn, err := c.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx, conn))
	_, err = creds.Session(ts.URL)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	_, err = conn.API.FetchFeed(ctx)
	assert.Error(t, err)
}
