package storage

type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Seller      string    `json:"seller"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// Message is a single entry of an item thread
type Message struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"createdAt"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Friend is a directed edge: User considers Friend a friend
type Friend struct {
	User      string    `json:"user"`
	Friend    string    `json:"friend"`
	CreatedAt Timestamp `json:"createdAt"`
}

type PublicChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"createdAt"`
}

type DirectMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"createdAt"`
}

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Location    string    `json:"location"`
	Organizer   string    `json:"organizer"`
	CreatedAt   Timestamp `json:"createdAt"`
}

type EventRSVP struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	CreatedAt Timestamp `json:"createdAt"`
}

// NewItem holds the caller-provided fields of an Item
type NewItem struct {
	Title       string
	Description string
	Price       float64
	Seller      string
	ImageURL    string
}

// NewEvent holds the caller-provided fields of an Event
type NewEvent struct {
	Title       string
	Description string
	Date        string
	Location    string
	Organizer   string
}
