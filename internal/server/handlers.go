package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"campusmarket/internal/storage"
	"campusmarket/internal/storage/zapadapter"
)

type parsers struct {
	createItemPool    fastjson.ParserPool
	createMessagePool fastjson.ParserPool
	createUserPool    fastjson.ParserPool
	addFriendPool     fastjson.ParserPool
	publicChatPool    fastjson.ParserPool
	directMessagePool fastjson.ParserPool
	createEventPool   fastjson.ParserPool
	createRSVPPool    fastjson.ParserPool
}

type handler struct {
	logger  *zap.SugaredLogger
	store   storage.Store
	parsers parsers
}

// routes returns the handler of every API endpoint keyed by its http.ServeMux pattern
func (h *handler) routes() map[string]http.Handler {
	return map[string]http.Handler{
		"GET /api/items":                http.HandlerFunc(h.listItems),
		"POST /api/items":               enforcePOSTJSON(http.HandlerFunc(h.createItem)),
		"GET /api/items/{id}":           http.HandlerFunc(h.getItem),
		"GET /api/items/{id}/messages":  http.HandlerFunc(h.listMessages),
		"POST /api/items/{id}/messages": enforcePOSTJSON(http.HandlerFunc(h.createMessage)),
		"GET /api/users":                http.HandlerFunc(h.listUsers),
		"POST /api/users":               enforcePOSTJSON(http.HandlerFunc(h.createUser)),
		"GET /api/friends":              http.HandlerFunc(h.listFriends),
		"POST /api/friends":             enforcePOSTJSON(http.HandlerFunc(h.addFriend)),
		"GET /api/chat/public":          http.HandlerFunc(h.listPublicChat),
		"POST /api/chat/public":         enforcePOSTJSON(http.HandlerFunc(h.postPublicChat)),
		"GET /api/chat/dm":              http.HandlerFunc(h.listDirectMessages),
		"POST /api/chat/dm":             enforcePOSTJSON(http.HandlerFunc(h.postDirectMessage)),
		"GET /api/events":               http.HandlerFunc(h.listEvents),
		"POST /api/events":              enforcePOSTJSON(http.HandlerFunc(h.createEvent)),
		"GET /api/events/{id}":          http.HandlerFunc(h.getEvent),
		"GET /api/events/{id}/rsvp":     http.HandlerFunc(h.listRSVPs),
		"POST /api/events/{id}/rsvp":    enforcePOSTJSON(http.HandlerFunc(h.createRSVP)),
	}
}

// parseObject parses the request body with a parser from pool
// the returned value is valid until parser is put back to pool
func parseObject(w http.ResponseWriter, r *http.Request, parser *fastjson.Parser) (*fastjson.Value, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Can not read request body", http.StatusBadRequest)
		return nil, false
	}

	v, err := parser.ParseBytes(body)
	if err != nil {
		http.Error(w, "Malformed JSON", http.StatusBadRequest)
		return nil, false
	}

	if v.Type() != fastjson.TypeObject {
		http.Error(w, "JSON body must be an object", http.StatusBadRequest)
		return nil, false
	}

	return v, true
}

// requiredString retrieves a non-empty string field of v
func requiredString(w http.ResponseWriter, v *fastjson.Value, field string) (string, bool) {
	if !v.Exists(field) {
		http.Error(w, "Missing Field \""+field+"\"", http.StatusBadRequest)
		return "", false
	}

	fieldValue := v.Get(field)
	if fieldValue.Type() != fastjson.TypeString {
		http.Error(w, "Field \""+field+"\" must be a string", http.StatusBadRequest)
		return "", false
	}

	b, _ := fieldValue.StringBytes()
	if len(b) == 0 {
		http.Error(w, "Field \""+field+"\" must have non-zero length", http.StatusBadRequest)
		return "", false
	}

	return string(b), true
}

// optionalString retrieves a string field of v, absent and null fields give an empty string
func optionalString(w http.ResponseWriter, v *fastjson.Value, field string) (string, bool) {
	fieldValue := v.Get(field)
	if fieldValue == nil || fieldValue.Type() == fastjson.TypeNull {
		return "", true
	}

	if fieldValue.Type() != fastjson.TypeString {
		http.Error(w, "Field \""+field+"\" must be a string", http.StatusBadRequest)
		return "", false
	}

	b, _ := fieldValue.StringBytes()
	return string(b), true
}

// requiredPrice retrieves a non-negative price given either as a JSON number or a numeric string
func requiredPrice(w http.ResponseWriter, v *fastjson.Value) (float64, bool) {
	if !v.Exists("price") {
		http.Error(w, "Missing Field \"price\"", http.StatusBadRequest)
		return 0, false
	}

	var (
		price float64
		err   error
	)
	priceValue := v.Get("price")
	switch priceValue.Type() {
	case fastjson.TypeNumber:
		price, err = priceValue.Float64()
	case fastjson.TypeString:
		b, _ := priceValue.StringBytes()
		price, err = strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	default:
		err = errors.New("price is neither a number nor a string")
	}

	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		http.Error(w, "Field \"price\" must be a number", http.StatusBadRequest)
		return 0, false
	}

	if price < 0 {
		http.Error(w, "Field \"price\" must not be negative", http.StatusBadRequest)
		return 0, false
	}

	return price, true
}

// requiredQuery retrieves a non-empty query parameter
func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		http.Error(w, "Missing query parameter \""+name+"\"", http.StatusBadRequest)
		return "", false
	}

	return value, true
}

// storeError maps errors returned by storage.Store to HTTP responses
func (h *handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrBadIdentity):
		http.Error(w, "Bad identifier", http.StatusBadRequest)
	case errors.Is(err, storage.ErrItemNotExist):
		http.Error(w, "Item not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrEventNotExist):
		http.Error(w, "Event not found", http.StatusNotFound)
	default:
		zapadapter.Sugared(r.Context(), h.logger).Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		zapadapter.Sugared(r.Context(), h.logger).Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		zapadapter.Sugared(r.Context(), h.logger).Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// usersExist reports whether every id names an existing user, writing 400 otherwise
func (h *handler) usersExist(w http.ResponseWriter, r *http.Request, ids ...string) bool {
	for _, id := range ids {
		_, err := h.store.UserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotExist) {
				http.Error(w, "User with provided id does not exist", http.StatusBadRequest)
				return false
			}
			h.storeError(w, r, err)
			return false
		}
	}

	return true
}

// listItems handles GET requests on "/api/items" endpoint
func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.AllItems(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, items)
}

// createItem handles POST requests on "/api/items" endpoint
func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.createItemPool.Get()
	defer h.parsers.createItemPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	var item storage.NewItem
	if item.Title, ok = requiredString(w, v, "title"); !ok {
		return
	}
	if item.Description, ok = requiredString(w, v, "description"); !ok {
		return
	}
	if item.Price, ok = requiredPrice(w, v); !ok {
		return
	}
	if item.Seller, ok = requiredString(w, v, "seller"); !ok {
		return
	}
	if item.ImageURL, ok = optionalString(w, v, "imageUrl"); !ok {
		return
	}

	created, err := h.store.AddItem(r.Context(), item)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, created)
}

// getItem handles GET requests on "/api/items/{id}" endpoint
func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.ItemByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, item)
}

// listMessages handles GET requests on "/api/items/{id}/messages" endpoint
func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if _, err := h.store.ItemByID(r.Context(), itemID); err != nil {
		h.storeError(w, r, err)
		return
	}

	messages, err := h.store.Messages(r.Context(), itemID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, messages)
}

// createMessage handles POST requests on "/api/items/{id}/messages" endpoint
func (h *handler) createMessage(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if _, err := h.store.ItemByID(r.Context(), itemID); err != nil {
		h.storeError(w, r, err)
		return
	}

	parser := h.parsers.createMessagePool.Get()
	defer h.parsers.createMessagePool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	sender, ok := requiredString(w, v, "sender")
	if !ok {
		return
	}
	text, ok := requiredString(w, v, "text")
	if !ok {
		return
	}

	message, err := h.store.AddMessage(r.Context(), itemID, sender, text)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, message)
}

// listUsers handles GET requests on "/api/users" endpoint
// an optional "q" parameter keeps users whose name contains it, ignoring case
func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q != "" {
		filtered := make([]storage.User, 0, len(users))
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Name), q) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	h.writeJSON(w, r, http.StatusOK, users)
}

// createUser handles POST requests on "/api/users" endpoint
// registering an existing name returns that user
func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.createUserPool.Get()
	defer h.parsers.createUserPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	name, ok := requiredString(w, v, "name")
	if !ok {
		return
	}

	name = strings.TrimSpace(name)
	if name == "" {
		http.Error(w, "Field \"name\" must have non-zero length", http.StatusBadRequest)
		return
	}

	user, err := h.store.CreateUser(r.Context(), name)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, user)
}

// listFriends handles GET requests on "/api/friends" endpoint
func (h *handler) listFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := requiredQuery(w, r, "userId")
	if !ok {
		return
	}

	friends, err := h.store.Friends(r.Context(), userID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, friends)
}

// addFriend handles POST requests on "/api/friends" endpoint
func (h *handler) addFriend(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.addFriendPool.Get()
	defer h.parsers.addFriendPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	userID, ok := requiredString(w, v, "userId")
	if !ok {
		return
	}
	friendID, ok := requiredString(w, v, "friendId")
	if !ok {
		return
	}

	if !h.usersExist(w, r, userID, friendID) {
		return
	}

	if _, err := h.store.AddFriend(r.Context(), userID, friendID); err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, map[string]bool{"ok": true})
}

// listPublicChat handles GET requests on "/api/chat/public" endpoint
func (h *handler) listPublicChat(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.PublicChat(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, messages)
}

// postPublicChat handles POST requests on "/api/chat/public" endpoint
func (h *handler) postPublicChat(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.publicChatPool.Get()
	defer h.parsers.publicChatPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	sender, ok := requiredString(w, v, "sender")
	if !ok {
		return
	}
	text, ok := requiredString(w, v, "text")
	if !ok {
		return
	}

	message, err := h.store.PostPublicChat(r.Context(), sender, text)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, message)
}

// listDirectMessages handles GET requests on "/api/chat/dm" endpoint
func (h *handler) listDirectMessages(w http.ResponseWriter, r *http.Request) {
	a, ok := requiredQuery(w, r, "a")
	if !ok {
		return
	}
	b, ok := requiredQuery(w, r, "b")
	if !ok {
		return
	}

	messages, err := h.store.DirectMessages(r.Context(), a, b)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, messages)
}

// postDirectMessage handles POST requests on "/api/chat/dm" endpoint
func (h *handler) postDirectMessage(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.directMessagePool.Get()
	defer h.parsers.directMessagePool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	from, ok := requiredString(w, v, "from")
	if !ok {
		return
	}
	to, ok := requiredString(w, v, "to")
	if !ok {
		return
	}
	text, ok := requiredString(w, v, "text")
	if !ok {
		return
	}

	if !h.usersExist(w, r, from, to) {
		return
	}

	message, err := h.store.PostDirectMessage(r.Context(), from, to, text)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, message)
}

// listEvents handles GET requests on "/api/events" endpoint
func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.Events(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, events)
}

// createEvent handles POST requests on "/api/events" endpoint
func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.createEventPool.Get()
	defer h.parsers.createEventPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	var event storage.NewEvent
	if event.Title, ok = requiredString(w, v, "title"); !ok {
		return
	}
	if event.Description, ok = requiredString(w, v, "description"); !ok {
		return
	}
	if event.Date, ok = requiredString(w, v, "date"); !ok {
		return
	}
	if event.Location, ok = requiredString(w, v, "location"); !ok {
		return
	}
	if event.Organizer, ok = requiredString(w, v, "organizer"); !ok {
		return
	}

	created, err := h.store.CreateEvent(r.Context(), event)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, created)
}

// getEvent handles GET requests on "/api/events/{id}" endpoint
func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.EventByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, event)
}

// listRSVPs handles GET requests on "/api/events/{id}/rsvp" endpoint
func (h *handler) listRSVPs(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := h.store.EventByID(r.Context(), eventID); err != nil {
		h.storeError(w, r, err)
		return
	}

	rsvps, err := h.store.RSVPs(r.Context(), eventID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, rsvps)
}

// createRSVP handles POST requests on "/api/events/{id}/rsvp" endpoint
// a repeated RSVP answers 200 with a duplicate marker instead of the record
func (h *handler) createRSVP(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if _, err := h.store.EventByID(r.Context(), eventID); err != nil {
		h.storeError(w, r, err)
		return
	}

	parser := h.parsers.createRSVPPool.Get()
	defer h.parsers.createRSVPPool.Put(parser)

	v, ok := parseObject(w, r, parser)
	if !ok {
		return
	}

	userID, ok := requiredString(w, v, "userId")
	if !ok {
		return
	}

	if !h.usersExist(w, r, userID) {
		return
	}

	rsvp, created, err := h.store.CreateRSVP(r.Context(), eventID, userID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if !created {
		h.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true, "duplicate": true})
		return
	}

	h.writeJSON(w, r, http.StatusCreated, rsvp)
}
