package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/models"
)

type recordingHub struct {
	mu     sync.Mutex
	events map[int][]models.GroupEvent
	left   map[int][]string
	sizes  map[int]int
}

func newRecordingHub() *recordingHub {
	return &recordingHub{events: map[int][]models.GroupEvent{}, left: map[int][]string{}, sizes: map[int]int{}}
}

func (r *recordingHub) LeaveUser(groupID int, userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left[groupID] = append(r.left[groupID], userID)
	return 1
}

func (r *recordingHub) RoomSize(groupID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sizes[groupID]
}

func (r *recordingHub) Broadcast(groupID int, event models.GroupEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[groupID] = append(r.events[groupID], event)
}

func newTestRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("user", models.User{ID: userID})
		c.Next()
	})
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestCurrentUser(t *testing.T) {
	r := newTestRouter("u1")
	r.GET("/auth/user", CurrentUser)

	rec := do(r, http.MethodGet, "/auth/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"u1"`)

	bare := gin.New()
	bare.GET("/auth/user", CurrentUser)
	require.Equal(t, http.StatusUnauthorized, do(bare, http.MethodGet, "/auth/user", "").Code)
}
