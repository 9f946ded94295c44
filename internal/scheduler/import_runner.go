package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/sources/importfile"
	"github.com/markitapp/markit/internal/store"
)

// ImportRunner periodically applies a declarative bookmarks yaml to
// one owner's records. Existing records win: bookmarks are matched by
// URL and folders by name, so re-running the import is idempotent and
// never duplicates or overwrites user edits.
type ImportRunner struct {
	loader        *importfile.Loader
	mapper        *importfile.Mapper
	store         store.RecordStore
	logger        logger.Logger
	ownerID       string
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewImportRunner creates a new import runner
func NewImportRunner(
	importFile string,
	ownerID string,
	recordStore store.RecordStore,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ImportRunner {
	return &ImportRunner{
		loader:        importfile.NewLoader(importFile),
		mapper:        importfile.NewMapper(ownerID),
		store:         recordStore,
		logger:        log,
		ownerID:       ownerID,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic import process
func (ir *ImportRunner) Start(ctx context.Context) error {
	// Run immediately on start. A broken file must not keep the
	// service down, the records arrive on the next successful run.
	if err := ir.Run(ctx); err != nil {
		ir.logger.Warn("initial import run failed", logger.Error(err))
	}

	ticker := time.NewTicker(ir.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ir.Run(ctx); err != nil {
					ir.logger.Error("failed to run import", logger.Error(err))
				}
			case <-ir.manualTrigger:
				ir.logger.Info("manual import triggered")
				if err := ir.Run(ctx); err != nil {
					ir.logger.Error("failed to run import", logger.Error(err))
				}
			case <-ir.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the runner
func (ir *ImportRunner) Stop() {
	close(ir.stopCh)
}

// Run loads the import file and creates whatever it declares that the
// owner does not already have.
func (ir *ImportRunner) Run(ctx context.Context) error {
	ir.logger.Info("running bookmark import",
		logger.String("owner_id", ir.ownerID))

	f, err := ir.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load import file: %w", err)
	}

	folderIDs, foldersCreated, err := ir.syncFolders(ctx, f)
	if err != nil {
		return err
	}

	bookmarksCreated, err := ir.syncBookmarks(ctx, f, folderIDs)
	if err != nil {
		return err
	}

	if foldersCreated > 0 || bookmarksCreated > 0 {
		ir.logger.Info("import run completed",
			logger.Int("folders_created", foldersCreated),
			logger.Int("bookmarks_created", bookmarksCreated))
	} else {
		ir.logger.Debug("import run found nothing new")
	}

	return nil
}

// syncFolders creates missing folders and returns the name -> id map
// for bookmark resolution.
func (ir *ImportRunner) syncFolders(ctx context.Context, f importfile.File) (map[string]string, int, error) {
	existing, err := ir.store.ListFolders(ctx, ir.ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list folders: %w", err)
	}

	ids := make(map[string]string, len(existing))
	for _, folder := range existing {
		ids[folder.Name] = folder.ID
	}

	drafts, skipped := ir.mapper.Folders(f)
	if skipped > 0 {
		ir.logger.Warn("skipped invalid folder entries", logger.Int("count", skipped))
	}

	created := 0
	for _, draft := range drafts {
		if _, ok := ids[draft.Name]; ok {
			continue
		}
		folder, err := ir.store.CreateFolder(ctx, draft)
		if err != nil {
			ir.logger.Warn("failed to create imported folder",
				logger.String("name", draft.Name),
				logger.Error(err))
			continue
		}
		ids[folder.Name] = folder.ID
		created++
	}

	return ids, created, nil
}

// syncBookmarks creates bookmarks whose URL the owner does not have yet.
func (ir *ImportRunner) syncBookmarks(ctx context.Context, f importfile.File, folderIDs map[string]string) (int, error) {
	existing, err := ir.store.ListBookmarks(ctx, ir.ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	haveURL := make(map[string]bool, len(existing))
	for _, b := range existing {
		haveURL[b.URL] = true
	}

	drafts, skipped := ir.mapper.Bookmarks(f)
	if skipped > 0 {
		ir.logger.Warn("skipped invalid bookmark entries", logger.Int("count", skipped))
	}

	created := 0
	for _, draft := range drafts {
		if haveURL[draft.Bookmark.URL] {
			continue
		}

		b := draft.Bookmark
		if draft.FolderName != "" {
			id, ok := folderIDs[draft.FolderName]
			if !ok {
				ir.logger.Warn("imported bookmark references unknown folder, leaving unfiled",
					logger.String("title", b.Title),
					logger.String("folder", draft.FolderName))
			}
			b.FolderID = id
		}

		if _, err := ir.store.CreateBookmark(ctx, b); err != nil {
			ir.logger.Warn("failed to create imported bookmark",
				logger.String("title", b.Title),
				logger.Error(err))
			continue
		}
		haveURL[b.URL] = true
		created++
	}

	return created, nil
}
