package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
	"github.com/pairbook/core/internal/ports"
)

// LedgerService owns the lifecycle of daily task pages: lazy creation with
// carry-over from the prior day, task mutation, tear-off archival, and
// restoration from the archive.
type LedgerService struct {
	pages   ports.TaskPageRepository
	archive ports.ArchiveRepository
	logger  *logger.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(pages ports.TaskPageRepository, archive ports.ArchiveRepository, logger *logger.Logger) *LedgerService {
	return &LedgerService{
		pages:   pages,
		archive: archive,
		logger:  logger,
	}
}

func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(entities.DateLayout, date)
	if err != nil {
		return time.Time{}, entities.ErrInvalidDate
	}
	return t, nil
}

// LoadOrCreatePage fetches the task page for a date, lazily creating it on
// first view. A freshly created page carries over yesterday's incomplete
// tasks; completed tasks are dropped and never reappear. Creation is
// conditional, so when both partners open a new date at once exactly one
// page wins and the other caller reads the winner's page.
func (s *LedgerService) LoadOrCreatePage(ctx context.Context, pairingID, date, requestingUserID string) (*entities.TaskPage, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.Get(ctx, pairingID, date)
	if err == nil {
		return page, nil
	}
	if err != entities.ErrPageNotFound {
		return nil, fmt.Errorf("load task page: %w", err)
	}

	yesterday := day.AddDate(0, 0, -1).Format(entities.DateLayout)

	var fresh *entities.TaskPage
	prev, err := s.pages.Get(ctx, pairingID, yesterday)
	switch err {
	case nil:
		fresh = prev.CarryOver(date, requestingUserID)
	case entities.ErrPageNotFound:
		fresh = entities.NewTaskPage(date, requestingUserID)
	default:
		return nil, fmt.Errorf("load prior task page: %w", err)
	}

	created, err := s.pages.Create(ctx, pairingID, fresh)
	if err != nil {
		return nil, fmt.Errorf("create task page: %w", err)
	}
	if !created {
		// Lost the lazy-create race; the winner's page is authoritative.
		page, err := s.pages.Get(ctx, pairingID, date)
		if err != nil {
			return nil, fmt.Errorf("load task page after create race: %w", err)
		}
		return page, nil
	}

	s.logger.Info("Task page created",
		"pairing_id", pairingID,
		"date", date,
		"carried_shared", len(fresh.SharedTasks),
	)

	return fresh, nil
}

// AddTask appends a new task to the selected list of a date's page,
// creating the page first if needed. Empty or whitespace-only text is a
// silent no-op and returns a nil task. Only the affected list field is
// persisted.
func (s *LedgerService) AddTask(ctx context.Context, pairingID, date string, kind entities.ListKind, actingUserID, text string) (*entities.Task, error) {
	return s.appendTask(ctx, pairingID, date, actingUserID, kind, actingUserID, text)
}

// RestoreTask brings a task back from an archived page onto the current
// day's page as a brand-new task: fresh id, done reset to false, same
// text. The archive entry is never touched, so restoring twice yields two
// independent live tasks. The owner id comes from the archive entry and
// may name a user who is no longer an active member; their list is created
// as needed.
func (s *LedgerService) RestoreTask(ctx context.Context, pairingID, currentDate, requestingUserID string, archived entities.Task, kind entities.ListKind, ownerID string) (*entities.Task, error) {
	return s.appendTask(ctx, pairingID, currentDate, requestingUserID, kind, ownerID, archived.Text)
}

func (s *LedgerService) appendTask(ctx context.Context, pairingID, date, requestingUserID string, kind entities.ListKind, ownerID, text string) (*entities.Task, error) {
	if !kind.IsValid() {
		return nil, entities.ErrInvalidListKind
	}

	task, ok := entities.NewTask(text)
	if !ok {
		return nil, nil
	}

	page, err := s.LoadOrCreatePage(ctx, pairingID, date, requestingUserID)
	if err != nil {
		return nil, err
	}

	page.Append(kind, ownerID, task)

	if kind == entities.ListShared {
		err = s.pages.SetSharedTasks(ctx, pairingID, date, page.SharedTasks)
	} else {
		err = s.pages.SetUserTasks(ctx, pairingID, date, ownerID, page.UserTasks[ownerID])
	}
	if err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	return &task, nil
}

// ToggleTask flips done on the task with the given id within the selected
// list. An unknown task id is a no-op. Only the affected list field is
// persisted.
func (s *LedgerService) ToggleTask(ctx context.Context, pairingID, date string, kind entities.ListKind, ownerID string, taskID int64) error {
	if !kind.IsValid() {
		return entities.ErrInvalidListKind
	}

	page, err := s.pages.Get(ctx, pairingID, date)
	if err != nil {
		return err
	}

	if !page.Toggle(kind, ownerID, taskID) {
		return nil
	}

	if kind == entities.ListShared {
		err = s.pages.SetSharedTasks(ctx, pairingID, date, page.SharedTasks)
	} else {
		err = s.pages.SetUserTasks(ctx, pairingID, date, ownerID, page.UserTasks[ownerID])
	}
	if err != nil {
		return fmt.Errorf("persist toggle: %w", err)
	}
	return nil
}

// TearOffPage archives a verbatim snapshot of the page, then clears the
// live lists while keeping the set of known user ids. The two writes are
// not atomic: the archive strictly happens before the reset is attempted,
// and a crash in between can leave an archived copy next to an un-reset
// page. The operation itself performs no all-done validation; the caller
// gates it.
func (s *LedgerService) TearOffPage(ctx context.Context, pairingID, date string) (*entities.ArchivedPage, error) {
	page, err := s.pages.Get(ctx, pairingID, date)
	if err != nil {
		return nil, err
	}

	shared, users := page.Snapshot()
	archived := &entities.ArchivedPage{
		Date:        page.Date,
		SharedTasks: shared,
		UserTasks:   users,
		CompletedAt: time.Now().UTC(),
	}

	key, err := s.archive.Add(ctx, pairingID, archived)
	if err != nil {
		return nil, fmt.Errorf("archive page: %w", err)
	}
	archived.ID = key

	page.Reset()
	if err := s.pages.ResetLists(ctx, pairingID, date, page.SharedTasks, page.UserTasks); err != nil {
		return nil, fmt.Errorf("reset page after archive: %w", err)
	}

	s.logger.Info("Task page torn off",
		"pairing_id", pairingID,
		"date", date,
		"history_key", key,
	)

	return archived, nil
}

// ListArchive returns all archived pages for the pairing, newest tear-off
// first. Pure read.
func (s *LedgerService) ListArchive(ctx context.Context, pairingID string) ([]*entities.ArchivedPage, error) {
	pages, err := s.archive.List(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	return pages, nil
}

// WatchPage streams full snapshots of a date's page: once immediately,
// then on every change. The page is lazily created first so the initial
// snapshot is authoritative rather than an ambiguous absence. The caller
// must invoke the returned cancel function when the watcher disconnects.
func (s *LedgerService) WatchPage(ctx context.Context, pairingID, date, requestingUserID string, fn func(*entities.TaskPage)) (func(), error) {
	if _, err := s.LoadOrCreatePage(ctx, pairingID, date, requestingUserID); err != nil {
		return nil, err
	}
	return s.pages.Watch(ctx, pairingID, date, fn)
}
