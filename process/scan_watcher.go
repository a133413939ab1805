package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/titof2710/Loto-sub000/models"
	"github.com/titof2710/Loto-sub000/pkg/ocr"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	dryRun  bool
)

type preloadState struct {
	planchesByFile map[string]*models.Planche // image base name -> planche
	mu             sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{planchesByFile: make(map[string]*models.Planche, 256)}
}

func (ps *preloadState) get(name string) (*models.Planche, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.planchesByFile[name]
	return p, ok
}

func (ps *preloadState) put(p *models.Planche) {
	ps.mu.Lock()
	ps.planchesByFile[filepath.Base(p.ImagePath)] = p
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans an inbox of planche photos, digitizes each into planche +
// carton rows, optional watch mode for photos dropped during the evening.
func main() {
	dirFlag := flag.String("dir", "scans/inbox", "directory to scan for planche photos")
	userID := flag.Uint("user-id", 0, "User ID to assign planches to (if omitted uses admin)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.BoolVar(&dryRun, "dry-run", false, "Digitize and report without any DB writes")
	flag.Parse()

	if !dryRun {
		db = mustInitDBFromEnv()
	}
	owner := resolveUser(*userID)
	ps := preloadAll(owner)
	log.Printf("Preloaded: planches=%d", len(ps.planchesByFile))

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, owner, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, owner, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadAll fetches existing planches to minimize per-file queries.
func preloadAll(owner models.User) *preloadState {
	ps := newPreloadState()
	if db == nil {
		return ps
	}
	var planches []models.Planche
	if err := db.Where("user_id = ?", owner.ID).Find(&planches).Error; err == nil {
		for i := range planches {
			p := planches[i]
			ps.planchesByFile[filepath.Base(p.ImagePath)] = &p
		}
	}
	return ps
}

// resolveUser finds the owning user either by explicit id or the admin account.
func resolveUser(id uint) models.User {
	if db == nil {
		return models.User{}
	}
	var u models.User
	if id != 0 {
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u
	}
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return u
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, owner models.User, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, owner, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	// ignore OCR-generated temp files to avoid recursive processing
	if strings.Contains(name, ".ocr.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, owner models.User, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, owner, ps)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile digitizes one planche photo into planche + carton rows.
// Idempotent per image name: already-known photos are skipped.
func processSingleFile(dir, name string, owner models.User, ps *preloadState) {
	filePath := filepath.Join(dir, name)

	if _, ok := ps.get(name); ok {
		logV("SKIP planche exists %s", name)
		return
	}

	scans, err := ocr.DigitizePlanche(filePath, nil)
	if err != nil {
		log.Printf("ERROR digitize %s: %v", name, err)
		return
	}
	complete := 0
	for _, s := range scans {
		if s.Card != nil {
			complete++
		}
	}
	if dryRun {
		log.Printf("DRY-RUN %s: %d/%d cartons complete", name, complete, len(scans))
		return
	}

	planche := models.Planche{UserID: owner.ID, Name: strings.TrimSuffix(name, filepath.Ext(name)), ImagePath: filepath.ToSlash(filePath)}
	if err := db.Create(&planche).Error; err != nil {
		if isUniqueConstraintError(err) { // race: someone else created
			logV("SKIP create race %s", name)
			return
		}
		log.Printf("ERROR create planche %s: %v", name, err)
		return
	}
	ps.put(&planche)
	log.Printf("NEW planche id=%d file=%s", planche.ID, name)

	for i, scan := range scans {
		ct := models.Carton{
			PlancheID:    planche.ID,
			Position:     i,
			SerialNumber: scan.SerialNumber,
			Confidence:   scan.Confidence,
			RawText:      scan.RawText,
		}
		if scan.Card != nil {
			grid, _ := json.Marshal(scan.Card.Grid)
			nums, _ := json.Marshal(scan.Card.Numbers)
			ct.Grid = datatypes.JSON(grid)
			ct.Numbers = datatypes.JSON(nums)
		} else {
			nums, _ := json.Marshal(scan.Numbers)
			ct.Numbers = datatypes.JSON(nums)
			ct.Failed = true
			ct.FailedReason = fmt.Sprintf("recognized %d/15 numbers", len(scan.Numbers))
		}
		if err := db.Create(&ct).Error; err != nil {
			log.Printf("ERROR create carton %s slot %d: %v", name, i, err)
		}
	}
	log.Printf("PLANCHE %s: %d/%d cartons complete", name, complete, len(scans))

	// Move the processed photo out of the inbox so new images are processed only once
	if err := moveToProcessed(filePath, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	} else {
		logV("moved processed %s", name)
	}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// moveToProcessed moves a file from the inbox to scans/processed/<name>.
// It attempts an atomic rename and falls back to copy+remove when necessary.
func moveToProcessed(srcFullPath, name string) error {
	processedDir := filepath.Join("scans", "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(srcFullPath, dst); err == nil {
		return nil
	}
	return copyRemove(srcFullPath, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	if err := os.Remove(src); err != nil {
		return err
	}
	return nil
}
