// Package roster deduplicates raw per-brand roster rows into one Worker
// per physical person. The shared sheet lists ごほうびSPA and ぐっすり山田
// side by side and the same cast routinely appears on several rows with
// brand-specific spellings; identity is decided by normalized alias
// match across the shared sheet's brand columns.
package roster

import (
	"strings"

	"castboard/internal/grid"
	"castboard/internal/models"
	"castboard/internal/names"
)

// ClosedMarker is the text staff insert into a roster row to demarcate
// "no longer accepting bookings today". Rows at and after it are
// future/inactive entries, not data.
const ClosedMarker = "受付終了"

// Stats carries merge telemetry for logging and metrics.
type Stats struct {
	RowsSeen   int
	RowsEmpty  int
	RowsCutOff int
	Merged     int
	Skipped    int // malformed reservation tokens
}

// Resolve builds the deduplicated worker list from the shared roster
// sheet and the dedicated single-brand sheet.
func Resolve(shared []grid.RosterRow, dedicated []grid.DedicatedRow) ([]*models.Worker, Stats) {
	var stats Stats
	var workers []*models.Worker

	for i, row := range shared {
		stats.RowsSeen++
		if strings.Contains(row.NameGohobi, ClosedMarker) || strings.Contains(row.NameGussuri, ClosedMarker) {
			stats.RowsCutOff += len(shared) - i
			break
		}
		if row.NameGohobi == "" && row.NameGussuri == "" {
			stats.RowsEmpty++
			continue
		}

		blocks, skipped := grid.ParseRowBlocks(row.Cells)
		stats.Skipped += skipped

		incoming := &models.Worker{}
		incoming.SetAlias(models.BrandGohobi, row.NameGohobi)
		incoming.SetAlias(models.BrandGussuri, row.NameGussuri)
		incoming.Reservations = blocks

		if existing := findMatch(workers, incoming); existing != nil {
			merge(existing, incoming)
			stats.Merged++
		} else {
			recomputeName(incoming)
			workers = append(workers, incoming)
		}
	}

	for i, row := range dedicated {
		stats.RowsSeen++
		if strings.Contains(row.Name, ClosedMarker) {
			stats.RowsCutOff += len(dedicated) - i
			break
		}
		if row.Name == "" {
			stats.RowsEmpty++
			continue
		}
		blocks, skipped := grid.ParseRowBlocks(row.Cells)
		stats.Skipped += skipped

		incoming := &models.Worker{}
		incoming.SetAlias(models.BrandChijo, row.Name)
		incoming.Reservations = blocks

		if existing := findMatch(workers, incoming); existing != nil {
			merge(existing, incoming)
			stats.Merged++
		} else {
			recomputeName(incoming)
			workers = append(workers, incoming)
		}
	}

	workers, merged := mergePass(workers)
	stats.Merged += merged
	return workers, stats
}

// findMatch returns the first accumulated worker sharing a normalized
// alias with the candidate. A single matching alias is conclusive
// identity; no corroborating check is made (deliberately permissive,
// matching operator expectations).
func findMatch(workers []*models.Worker, candidate *models.Worker) *models.Worker {
	for _, w := range workers {
		if aliasMatch(w, candidate) {
			return w
		}
	}
	return nil
}

// sharedBrands are the two columns of the shared roster sheet. A cast's
// spellings there differ only by the brand marker, so identity compares
// normalized keys across both columns. The dedicated sheet's brand is
// matched only against itself.
var sharedBrands = []models.Brand{models.BrandGohobi, models.BrandGussuri}

func aliasMatch(a, b *models.Worker) bool {
	for _, keyA := range sharedKeys(a) {
		for _, keyB := range sharedKeys(b) {
			if keyA == keyB {
				return true
			}
		}
	}

	keyA := names.Key(a.Alias(models.BrandChijo))
	keyB := names.Key(b.Alias(models.BrandChijo))
	return keyA != "" && keyA == keyB
}

func sharedKeys(w *models.Worker) []string {
	var keys []string
	for _, brand := range sharedBrands {
		if key := names.Key(w.Alias(brand)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// merge folds src into dst. Conflicting aliases resolve last-write-wins;
// reservation blocks deduplicate on the exact (brand, start, end)
// triple; the display name is always recomputed from final alias state.
func merge(dst, src *models.Worker) {
	for brand, alias := range src.Aliases {
		if alias != "" {
			dst.SetAlias(brand, alias)
		}
	}
	for _, block := range src.Reservations {
		if !hasBlock(dst.Reservations, block) {
			dst.Reservations = append(dst.Reservations, block)
		}
	}
	recomputeName(dst)
}

func hasBlock(blocks []models.ReservationBlock, b models.ReservationBlock) bool {
	for _, existing := range blocks {
		if existing.Brand == b.Brand && existing.Interval == b.Interval {
			return true
		}
	}
	return false
}

// recomputeName derives the display name from the normalized alias
// forms, brand markers stripped.
func recomputeName(w *models.Worker) {
	gohobi := names.Display(w.Alias(models.BrandGohobi))
	gussuri := names.Display(w.Alias(models.BrandGussuri))
	switch {
	case gohobi != "" && gussuri != "":
		w.Name = gohobi + " / " + gussuri
	case gohobi != "":
		w.Name = gohobi
	case gussuri != "":
		w.Name = gussuri
	default:
		w.Name = names.Display(w.Alias(models.BrandChijo))
	}
}

// mergePass runs a global dedup over the accumulated list to catch
// duplicates the incremental pass missed, e.g. the same cast's two brand
// aliases appearing on non-adjacent rows in an order where neither row
// alone revealed the identity.
func mergePass(workers []*models.Worker) ([]*models.Worker, int) {
	var out []*models.Worker
	merged := 0
	absorbed := make(map[int]bool)

	for i, w := range workers {
		if absorbed[i] {
			continue
		}
		for j := i + 1; j < len(workers); j++ {
			if absorbed[j] {
				continue
			}
			if aliasMatch(w, workers[j]) {
				merge(w, workers[j])
				absorbed[j] = true
				merged++
			}
		}
		out = append(out, w)
	}
	return out, merged
}
