package entities

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// Common errors
var (
	ErrPageNotFound       = errors.New("task page not found")
	ErrPairingNotFound    = errors.New("pairing not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPairingFull        = errors.New("pairing already has two members")
	ErrInvalidPairingCode = errors.New("invalid pairing code")
	ErrAlreadyMember      = errors.New("user is already a member of the pairing")
	ErrInvalidDate        = errors.New("date must be an ISO date (YYYY-MM-DD)")
	ErrInvalidListKind    = errors.New("invalid task list kind")
	ErrInvalidEventType   = errors.New("invalid event type")
)

// DateLayout is the ISO date format that keys a task page.
const DateLayout = "2006-01-02"

// ListKind selects which task list of a page an operation targets.
type ListKind string

const (
	ListShared   ListKind = "shared"
	ListPersonal ListKind = "personal"
)

func (lk ListKind) IsValid() bool {
	return lk == ListShared || lk == ListPersonal
}

// EventType categorizes a calendar event.
type EventType string

const (
	EventTypeAnniversary EventType = "anniversary"
	EventTypeMilestone   EventType = "milestone"
	EventTypeReminder    EventType = "reminder"
	EventTypeOther       EventType = "other"
)

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeAnniversary, EventTypeMilestone, EventTypeReminder, EventTypeOther:
		return true
	default:
		return false
	}
}

// Task is a single line on a task page. Tasks are toggled in place and
// never edited; they leave a page only by carry-over, tear-off, or reset.
type Task struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// NewTask builds a task with a freshly allocated id. It returns false when
// the text is empty or whitespace-only.
func NewTask(text string) (Task, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, false
	}
	return Task{ID: NextTaskID(), Text: text, Done: false}, true
}

// Task ids are wall-clock millisecond timestamps, as in the persisted
// document format. A process-local monotonic bump keeps ids distinct when
// several tasks are allocated within the same millisecond (bulk restore).
var (
	taskIDMu   sync.Mutex
	lastTaskID int64
)

// NextTaskID allocates a task id that is strictly increasing within this
// process.
func NextTaskID() int64 {
	taskIDMu.Lock()
	defer taskIDMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastTaskID {
		id = lastTaskID + 1
	}
	lastTaskID = id
	return id
}

// TaskPage is one calendar day's task board for a pairing: a shared list
// plus one personal list per known member.
type TaskPage struct {
	Date        string            `json:"date"`
	SharedTasks []Task            `json:"sharedTasks"`
	UserTasks   map[string][]Task `json:"userTasks"`
}

// NewTaskPage returns an empty page for date with a personal list for the
// requesting user.
func NewTaskPage(date, requestingUserID string) *TaskPage {
	return &TaskPage{
		Date:        date,
		SharedTasks: []Task{},
		UserTasks:   map[string][]Task{requestingUserID: {}},
	}
}

// CarryOver builds the page for date from a prior day's page: incomplete
// tasks come along verbatim, completed tasks are dropped. Every user id
// known yesterday keeps a list, and the requesting user's list exists even
// if it was absent yesterday.
func (p *TaskPage) CarryOver(date, requestingUserID string) *TaskPage {
	next := &TaskPage{
		Date:        date,
		SharedTasks: incompleteTasks(p.SharedTasks),
		UserTasks:   make(map[string][]Task, len(p.UserTasks)+1),
	}
	for uid, tasks := range p.UserTasks {
		next.UserTasks[uid] = incompleteTasks(tasks)
	}
	if _, ok := next.UserTasks[requestingUserID]; !ok {
		next.UserTasks[requestingUserID] = []Task{}
	}
	return next
}

func incompleteTasks(tasks []Task) []Task {
	kept := []Task{}
	for _, t := range tasks {
		if !t.Done {
			kept = append(kept, t)
		}
	}
	return kept
}

// Tasks returns the list selected by kind; for ListPersonal that is the
// given owner's list (nil when the owner has none yet).
func (p *TaskPage) Tasks(kind ListKind, ownerID string) []Task {
	if kind == ListShared {
		return p.SharedTasks
	}
	return p.UserTasks[ownerID]
}

// Append adds a task to the selected list, creating a personal list when
// the owner has none yet.
func (p *TaskPage) Append(kind ListKind, ownerID string, task Task) {
	if kind == ListShared {
		p.SharedTasks = append(p.SharedTasks, task)
		return
	}
	if p.UserTasks == nil {
		p.UserTasks = map[string][]Task{}
	}
	p.UserTasks[ownerID] = append(p.UserTasks[ownerID], task)
}

// Toggle flips done on the task with the given id in the selected list.
// It reports whether a task was found.
func (p *TaskPage) Toggle(kind ListKind, ownerID string, taskID int64) bool {
	tasks := p.Tasks(kind, ownerID)
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks[i].Done = !tasks[i].Done
			return true
		}
	}
	return false
}

// AllDone reports whether the page has at least one task and every task
// across the shared and personal lists is complete.
func (p *TaskPage) AllDone() bool {
	total := len(p.SharedTasks)
	for _, t := range p.SharedTasks {
		if !t.Done {
			return false
		}
	}
	for _, tasks := range p.UserTasks {
		total += len(tasks)
		for _, t := range tasks {
			if !t.Done {
				return false
			}
		}
	}
	return total > 0
}

// Reset clears the shared list and every personal list while preserving
// the set of known user ids.
func (p *TaskPage) Reset() {
	p.SharedTasks = []Task{}
	for uid := range p.UserTasks {
		p.UserTasks[uid] = []Task{}
	}
}

// Snapshot returns a deep copy of the page's lists, suitable for archiving
// without aliasing the live page.
func (p *TaskPage) Snapshot() (shared []Task, users map[string][]Task) {
	shared = append([]Task{}, p.SharedTasks...)
	users = make(map[string][]Task, len(p.UserTasks))
	for uid, tasks := range p.UserTasks {
		users[uid] = append([]Task{}, tasks...)
	}
	return shared, users
}

// ArchivedPage is an immutable snapshot of a task page taken at tear-off.
// Entries are append-only and never mutated after creation.
type ArchivedPage struct {
	ID          string            `json:"id,omitempty"`
	Date        string            `json:"date"`
	SharedTasks []Task            `json:"sharedTasks"`
	UserTasks   map[string][]Task `json:"userTasks"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Pairing is the two-user group that shares all data. A pairing carries a
// short join code until the second member arrives, after which the code is
// retired.
type Pairing struct {
	ID          string    `json:"id,omitempty"`
	Members     []string  `json:"members"`
	PairingCode *string   `json:"pairingCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

const pairingCapacity = 2

// IsFull reports whether the pairing already has both members.
func (pr *Pairing) IsFull() bool {
	return len(pr.Members) >= pairingCapacity
}

// HasMember reports whether the user belongs to the pairing.
func (pr *Pairing) HasMember(userID string) bool {
	for _, m := range pr.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AddMember appends a user to the pairing, retiring the join code once the
// pairing is full.
func (pr *Pairing) AddMember(userID string) error {
	if pr.HasMember(userID) {
		return ErrAlreadyMember
	}
	if pr.IsFull() {
		return ErrPairingFull
	}
	pr.Members = append(pr.Members, userID)
	if pr.IsFull() {
		pr.PairingCode = nil
	}
	return nil
}

// Event is a calendar entry for a pairing, keyed to an ISO date.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        EventType `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Post is a memory-wall entry. Media lives in an external file store and
// is referenced only by an opaque file id.
type Post struct {
	ID        string    `json:"id,omitempty"`
	AuthorID  string    `json:"authorId"`
	Caption   string    `json:"caption"`
	FileID    string    `json:"fileId"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"likedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikedByUser reports whether the user has liked the post.
func (po *Post) LikedByUser(userID string) bool {
	for _, uid := range po.LikedBy {
		if uid == userID {
			return true
		}
	}
	return false
}

// ToggleLike likes the post on behalf of the user, or withdraws an
// existing like. It returns the resulting liked state.
func (po *Post) ToggleLike(userID string) bool {
	if po.LikedByUser(userID) {
		kept := po.LikedBy[:0]
		for _, uid := range po.LikedBy {
			if uid != userID {
				kept = append(kept, uid)
			}
		}
		po.LikedBy = kept
		po.Likes--
		return false
	}
	po.LikedBy = append(po.LikedBy, userID)
	po.Likes++
	return true
}
