package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"campusmarket/internal/storage"
	"campusmarket/internal/storage/docstore"
	mytesting "campusmarket/internal/testing"
)

func bootstrapServer(t *testing.T, opts ...Option) (*Server, *docstore.Store) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	store, err := docstore.New(logger.Sugar(), docstore.Config{DataDir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)

	srv, err := NewServer(logger.Sugar(), store, opts...)
	require.NoError(t, err)

	return srv, store
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func createUser(t *testing.T, srv *Server, name string) storage.User {
	rr := do(t, srv, "POST", "/api/users", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	return decode[storage.User](t, rr)
}

func TestNewServerNilStore(t *testing.T) {
	t.Parallel()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	_, err = NewServer(logger.Sugar(), nil)
	require.Error(t, err)
}

func TestCreateItem(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	title := mytesting.RandString()

	rr := do(t, srv, "POST", "/api/items", `{"title":"`+title+`","description":"lamp","price":"12.5","seller":"amy","imageUrl":"https://img/lamp.png"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// validating response JSON
	var p fastjson.Parser
	v, err := p.ParseBytes(rr.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, title, string(v.GetStringBytes("title")))
	require.Equal(t, 12.5, v.GetFloat64("price"))
	require.Equal(t, "https://img/lamp.png", string(v.GetStringBytes("imageUrl")))
	require.NotEmpty(t, v.GetStringBytes("id"))
	require.NotEmpty(t, v.GetStringBytes("createdAt"))

	rr = do(t, srv, "POST", "/api/items", `{"title":"newer","description":"d","price":3,"seller":"bo"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.False(t, strings.Contains(rr.Body.String(), "imageUrl"))

	rr = do(t, srv, "GET", "/api/items", "")
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]storage.Item](t, rr)
	require.Len(t, items, 2)
	require.Equal(t, "newer", items[0].Title)
	require.Equal(t, title, items[1].Title)

	rr = do(t, srv, "GET", "/api/items/"+items[1].ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, items[1], decode[storage.Item](t, rr))
}

func TestCreateItemValidation(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"no title", `{"description":"d","price":1,"seller":"s"}`, `Missing Field "title"`},
		{"blank title", `{"title":"","description":"d","price":1,"seller":"s"}`, `Field "title" must have non-zero length`},
		{"title not string", `{"title":5,"description":"d","price":1,"seller":"s"}`, `Field "title" must be a string`},
		{"no price", `{"title":"t","description":"d","seller":"s"}`, `Missing Field "price"`},
		{"price not number", `{"title":"t","description":"d","price":"cheap","seller":"s"}`, `Field "price" must be a number`},
		{"negative price", `{"title":"t","description":"d","price":-1,"seller":"s"}`, `Field "price" must not be negative`},
		{"no seller", `{"title":"t","description":"d","price":1}`, `Missing Field "seller"`},
		{"image not string", `{"title":"t","description":"d","price":1,"seller":"s","imageUrl":1}`, `Field "imageUrl" must be a string`},
		{"not object", `["title"]`, `JSON body must be an object`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, "POST", "/api/items", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, tt.msg+"\n", rr.Body.String())
		})
	}

	rr := do(t, srv, "GET", "/api/items", "")
	require.Equal(t, "[]", rr.Body.String())
}

func TestGetItemNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)

	rr := do(t, srv, "GET", "/api/items/"+storage.NewID(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Item not found\n", rr.Body.String())
}

func TestItemMessages(t *testing.T) {
	t.Parallel()

	srv, store := bootstrapServer(t)
	item, err := store.AddItem(context.Background(), storage.NewItem{Title: "t", Description: "d", Price: 1, Seller: "amy"})
	require.NoError(t, err)

	target := "/api/items/" + item.ID + "/messages"

	rr := do(t, srv, "GET", target, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", rr.Body.String())

	for _, text := range []string{"is it available?", "yes", `with "quotes"`} {
		body, err := json.Marshal(map[string]string{"sender": "bo", "text": text})
		require.NoError(t, err)
		rr = do(t, srv, "POST", target, string(body))
		require.Equal(t, http.StatusCreated, rr.Code)
		m := decode[storage.Message](t, rr)
		require.Equal(t, item.ID, m.ItemID)
		require.Equal(t, text, m.Text)
	}

	rr = do(t, srv, "GET", target, "")
	messages := decode[[]storage.Message](t, rr)
	require.Len(t, messages, 3)
	require.Equal(t, "is it available?", messages[0].Text)
	require.Equal(t, `with "quotes"`, messages[2].Text)

	rr = do(t, srv, "POST", target, `{"sender":"bo"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing Field \"text\"\n", rr.Body.String())
}

func TestItemMessagesUnknownItem(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	target := "/api/items/" + storage.NewID() + "/messages"

	rr := do(t, srv, "GET", target, "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, "POST", target, `{"sender":"bo","text":"hi"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Item not found\n", rr.Body.String())
}

func TestCreateUserIdempotent(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	name := mytesting.RandString()

	u1 := createUser(t, srv, name)
	u2 := createUser(t, srv, strings.ToUpper(name))
	require.Equal(t, u1, u2)

	rr := do(t, srv, "POST", "/api/users", `{"name":"   "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "POST", "/api/users", `{"name":null}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Field \"name\" must be a string\n", rr.Body.String())
}

func TestListUsersFilter(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	createUser(t, srv, "Alice")
	createUser(t, srv, "Malik")
	createUser(t, srv, "Bob")

	rr := do(t, srv, "GET", "/api/users", "")
	require.Len(t, decode[[]storage.User](t, rr), 3)

	rr = do(t, srv, "GET", "/api/users?q=LI", "")
	users := decode[[]storage.User](t, rr)
	require.Len(t, users, 2)
	require.Equal(t, "Alice", users[0].Name)
	require.Equal(t, "Malik", users[1].Name)

	rr = do(t, srv, "GET", "/api/users?q=zz", "")
	require.Equal(t, "[]", rr.Body.String())
}

func TestFriends(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	a := createUser(t, srv, mytesting.RandString())
	b := createUser(t, srv, mytesting.RandString())

	body := `{"userId":"` + a.ID + `","friendId":"` + b.ID + `"}`
	for i := 0; i < 2; i++ {
		rr := do(t, srv, "POST", "/api/friends", body)
		require.Equal(t, http.StatusCreated, rr.Code)
		require.JSONEq(t, `{"ok":true}`, rr.Body.String())
	}

	rr := do(t, srv, "GET", "/api/friends?userId="+a.ID, "")
	friends := decode[[]storage.User](t, rr)
	require.Len(t, friends, 1)
	require.Equal(t, b, friends[0])

	// friendship is directed
	rr = do(t, srv, "GET", "/api/friends?userId="+b.ID, "")
	require.Equal(t, "[]", rr.Body.String())

	rr = do(t, srv, "GET", "/api/friends", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing query parameter \"userId\"\n", rr.Body.String())
}

func TestAddFriendUnknownUser(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	a := createUser(t, srv, mytesting.RandString())

	rr := do(t, srv, "POST", "/api/friends", `{"userId":"`+a.ID+`","friendId":"`+storage.NewID()+`"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "User with provided id does not exist\n", rr.Body.String())

	rr = do(t, srv, "POST", "/api/friends", `{"userId":"`+a.ID+`"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing Field \"friendId\"\n", rr.Body.String())
}

func TestPublicChat(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)

	rr := do(t, srv, "GET", "/api/chat/public", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", rr.Body.String())

	for _, text := range []string{"one", "two"} {
		rr = do(t, srv, "POST", "/api/chat/public", `{"sender":"amy","text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr = do(t, srv, "GET", "/api/chat/public", "")
	messages := decode[[]storage.PublicChatMessage](t, rr)
	require.Len(t, messages, 2)
	require.Equal(t, "one", messages[0].Text)
	require.Equal(t, "two", messages[1].Text)
}

func TestDirectMessages(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = createUser(t, srv, mytesting.RandString()).ID
	}

	for _, pair := range mytesting.UserPairs(ids) {
		rr := do(t, srv, "POST", "/api/chat/dm", `{"from":"`+pair[0]+`","to":"`+pair[1]+`","text":"hi"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	for _, pair := range mytesting.UserPairs(ids) {
		q := url.Values{"a": {pair[0]}, "b": {pair[1]}}
		rr := do(t, srv, "GET", "/api/chat/dm?"+q.Encode(), "")
		require.Equal(t, http.StatusOK, rr.Code)

		messages := decode[[]storage.DirectMessage](t, rr)
		require.Len(t, messages, 2)
		require.Equal(t, messages[0].From, messages[1].To)
		require.Equal(t, messages[0].To, messages[1].From)
	}
}

func TestDirectMessagesBadInput(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)
	a := createUser(t, srv, mytesting.RandString())

	rr := do(t, srv, "GET", "/api/chat/dm?a="+a.ID, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing query parameter \"b\"\n", rr.Body.String())

	rr = do(t, srv, "GET", "/api/chat/dm?a=x__y&b=z", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Bad identifier\n", rr.Body.String())

	rr = do(t, srv, "GET", "/api/chat/dm?a="+a.ID+"&b="+storage.NewID(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", rr.Body.String())

	rr = do(t, srv, "POST", "/api/chat/dm", `{"from":"`+a.ID+`","to":"`+storage.NewID()+`","text":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "User with provided id does not exist\n", rr.Body.String())
}

func TestEvents(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)

	for _, title := range []string{"older", "newer"} {
		rr := do(t, srv, "POST", "/api/events", `{"title":"`+title+`","description":"d","date":"2024-06-01","location":"Quad","organizer":"amy"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, srv, "GET", "/api/events", "")
	events := decode[[]storage.Event](t, rr)
	require.Len(t, events, 2)
	require.Equal(t, "newer", events[0].Title)

	rr = do(t, srv, "GET", "/api/events/"+events[1].ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, events[1], decode[storage.Event](t, rr))

	rr = do(t, srv, "GET", "/api/events/"+storage.NewID(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Event not found\n", rr.Body.String())

	rr = do(t, srv, "POST", "/api/events", `{"title":"t","description":"d","date":"2024-06-01","location":"Quad"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing Field \"organizer\"\n", rr.Body.String())
}

func TestRSVP(t *testing.T) {
	t.Parallel()

	srv, store := bootstrapServer(t)
	event, err := store.CreateEvent(context.Background(), storage.NewEvent{Title: "t", Description: "d", Date: "2024-06-01", Location: "Quad", Organizer: "amy"})
	require.NoError(t, err)
	user := createUser(t, srv, mytesting.RandString())

	target := "/api/events/" + event.ID + "/rsvp"

	rr := do(t, srv, "POST", target, `{"userId":"`+user.ID+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rsvp := decode[storage.EventRSVP](t, rr)
	require.Equal(t, event.ID, rsvp.EventID)
	require.Equal(t, user.ID, rsvp.UserID)

	rr = do(t, srv, "POST", target, `{"userId":"`+user.ID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"ok":true,"duplicate":true}`, rr.Body.String())

	rr = do(t, srv, "GET", target, "")
	rsvps := decode[[]storage.EventRSVP](t, rr)
	require.Len(t, rsvps, 1)
	require.Equal(t, rsvp, rsvps[0])

	rr = do(t, srv, "POST", target, `{"userId":"`+storage.NewID()+`"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "POST", "/api/events/"+storage.NewID()+"/rsvp", `{"userId":"`+user.ID+`"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, "GET", "/api/events/"+storage.NewID()+"/rsvp", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRSVPConcurrent(t *testing.T) {
	t.Parallel()

	srv, store := bootstrapServer(t)
	event, err := store.CreateEvent(context.Background(), storage.NewEvent{Title: "t", Description: "d", Date: "2024-06-01", Location: "Quad", Organizer: "amy"})
	require.NoError(t, err)
	user := createUser(t, srv, mytesting.RandString())

	target := "/api/events/" + event.ID + "/rsvp"
	body := `{"userId":"` + user.ID + `"}`

	const n = 16
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(t, srv, "POST", target, body).Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		require.Contains(t, []int{http.StatusOK, http.StatusCreated}, code)
		if code == http.StatusCreated {
			created++
		}
	}
	require.Equal(t, 1, created)

	rsvps, err := store.RSVPs(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)
}

func TestInternalOnCorruptDocument(t *testing.T) {
	t.Parallel()

	srv, store := bootstrapServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "users.json"), []byte("{"), 0o644))

	rr := do(t, srv, "GET", "/api/users", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = do(t, srv, "POST", "/api/users", `{"name":"amy"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	content, err := os.ReadFile(filepath.Join(store.Root(), "users.json"))
	require.NoError(t, err)
	require.Equal(t, "{", string(content))
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t)

	rr := do(t, srv, "DELETE", "/api/items", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, srv, "GET", "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimitOption(t *testing.T) {
	t.Parallel()

	srv, _ := bootstrapServer(t, RateLimit(0.001, 1))

	rr := do(t, srv, "POST", "/api/chat/public", `{"sender":"amy","text":"one"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, "POST", "/api/chat/public", `{"sender":"amy","text":"two"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	// reads are not limited
	for i := 0; i < 3; i++ {
		rr = do(t, srv, "GET", "/api/chat/public", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
