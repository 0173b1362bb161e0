package editentry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/storage"
)

func setupServer(t *testing.T) (*gin.Engine, logrecord.Repository, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:editentry_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&logrecord.LogRecord{}, &logrecord.VehicleRecord{}))

	store, err := storage.New(filepath.Join(t.TempDir(), "logs"))
	require.NoError(t, err)

	repo := logrecord.NewRepository(db)
	r := gin.New()
	RegisterRoutes(r, NewHandler(repo, store))
	return r, repo, store
}

func seedLog(t *testing.T, repo logrecord.Repository, store *storage.Store, id, token string) {
	t.Helper()
	require.NoError(t, repo.CreateLog(t.Context(), &logrecord.LogRecord{
		ID: id, Date: time.Now(), Public: 1, Token: token,
	}))
	require.NoError(t, os.WriteFile(store.LogPath(id), []byte("log bytes"), 0o644))
}

func TestDeleteWithValidToken(t *testing.T) {
	r, repo, store := setupServer(t)
	seedLog(t, repo, store, "log-1", "secrettoken")

	req := httptest.NewRequest(http.MethodGet, "/edit_entry?action=delete&log=log-1&token=secrettoken", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err := repo.GetLog(t.Context(), "log-1")
	assert.ErrorIs(t, err, logrecord.ErrLogNotFound)
	assert.False(t, store.Exists("log-1"))
}

func TestDeleteWithWrongTokenRefused(t *testing.T) {
	r, repo, store := setupServer(t)
	seedLog(t, repo, store, "log-1", "secrettoken")

	req := httptest.NewRequest(http.MethodGet, "/edit_entry?action=delete&log=log-1&token=wrong", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	_, err := repo.GetLog(t.Context(), "log-1")
	assert.NoError(t, err)
	assert.True(t, store.Exists("log-1"))
}

func TestDeleteUnknownLog(t *testing.T) {
	r, _, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/edit_entry?action=delete&log=nope&token=x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnsupportedAction(t *testing.T) {
	r, _, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/edit_entry?action=rename&log=log-1&token=x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "delete", "error details should name the supported action")
}
