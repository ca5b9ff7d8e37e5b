package structure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nordja/taskbridge/pkg/cache"
	"github.com/nordja/taskbridge/pkg/clickup"
)

var portugueseMonths = [12]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

var englishMonths = [12]string{
	"JANUARY", "FEBRUARY", "MARCH", "APRIL", "MAY", "JUNE",
	"JULY", "AUGUST", "SEPTEMBER", "OCTOBER", "NOVEMBER", "DECEMBER",
}

// YearMonth formats t as YYYY-MM in UTC.
func YearMonth(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%d-%02d", u.Year(), int(u.Month()))
}

// MonthName returns the Portuguese upper-case list name for a YYYY-MM value,
// e.g. "OUTUBRO 2025".
func MonthName(yearMonth string) string {
	year, month, ok := splitYearMonth(yearMonth)
	if !ok {
		return "DESCONHECIDO"
	}
	return portugueseMonths[month-1] + " " + year
}

// monthAliases returns the acceptable downstream list names for a YYYY-MM
// value: Portuguese and English month names, matched case-insensitively.
func monthAliases(yearMonth string) []string {
	year, month, ok := splitYearMonth(yearMonth)
	if !ok {
		return nil
	}
	return []string{
		portugueseMonths[month-1] + " " + year,
		englishMonths[month-1] + " " + year,
	}
}

func splitYearMonth(yearMonth string) (year string, month int, ok bool) {
	parts := strings.SplitN(yearMonth, "-", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return "", 0, false
	}
	return parts[0], m, true
}

// ResolveMonthlyList returns the list id of the current month's list inside a
// folder, creating it downstream when it does not exist yet. For inactive
// clients the list name is prefixed with the client name, because those
// folders are shared.
func (r *Resolver) ResolveMonthlyList(ctx context.Context, folderID, folderPathHint string) (string, error) {
	yearMonth := YearMonth(r.now())
	listName := MonthName(yearMonth)

	if client, ok := strings.CutPrefix(folderPathHint, inactivePrefix); ok && client != "" {
		listName = client + " - " + listName
	}

	cacheKey := cache.ListKey(folderID, yearMonth)

	// Memory cache, verified against the downstream API before reuse.
	if listID, ok := r.cache.GetList(cacheKey); ok {
		exists, err := r.api.ListExists(ctx, listID)
		if err != nil {
			return "", fmt.Errorf("list verification: %w", err)
		}
		if exists {
			return listID, nil
		}
		r.cache.InvalidateList(cacheKey)
	}

	// Persistent cache, also verified; stale rows are deactivated.
	if listID, found, err := r.store.FindCachedList(ctx, folderID, yearMonth, listName); err != nil {
		r.logger.Warn("List cache lookup failed", "folder_id", folderID, "error", err)
	} else if found {
		exists, err := r.api.ListExists(ctx, listID)
		if err != nil {
			return "", fmt.Errorf("list verification: %w", err)
		}
		if exists {
			r.cache.PutList(cacheKey, listID)
			return listID, nil
		}
		if err := r.store.DeactivateCachedList(ctx, listID); err != nil {
			r.logger.Warn("Failed to deactivate stale list row", "list_id", listID, "error", err)
		}
	}

	// Look for the list downstream before creating one.
	if listID, err := r.findListInFolder(ctx, folderID, listName, yearMonth); err != nil {
		return "", err
	} else if listID != "" {
		r.memoizeList(ctx, folderID, listID, listName, yearMonth, cacheKey)
		return listID, nil
	}

	r.logger.Info("Creating monthly list", "folder_id", folderID, "name", listName)
	list, err := r.api.CreateList(ctx, folderID, clickup.CreateListRequest{
		Name:    listName,
		Content: "Lista criada automaticamente em " + r.now().UTC().Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return "", fmt.Errorf("list creation: %w", err)
	}

	// Let the custom-field schema propagate before tasks land in the list.
	r.sleep(listSchemaPropagation)

	r.memoizeList(ctx, folderID, list.ID, listName, yearMonth, cacheKey)
	return list.ID, nil
}

// findListInFolder scans a folder for the monthly list, accepting exact and
// case-insensitive matches in Portuguese or English.
func (r *Resolver) findListInFolder(ctx context.Context, folderID, listName, yearMonth string) (string, error) {
	lists, err := r.api.GetFolderLists(ctx, folderID)
	if err != nil {
		return "", fmt.Errorf("folder listing: %w", err)
	}

	for _, l := range lists {
		if l.Name == listName {
			return l.ID, nil
		}
	}
	aliases := monthAliases(yearMonth)
	for _, l := range lists {
		if strings.EqualFold(l.Name, listName) {
			return l.ID, nil
		}
		for _, alias := range aliases {
			if strings.EqualFold(l.Name, alias) {
				return l.ID, nil
			}
		}
	}
	return "", nil
}

func (r *Resolver) memoizeList(ctx context.Context, folderID, listID, listName, yearMonth, cacheKey string) {
	r.cache.PutList(cacheKey, listID)
	if err := r.store.UpsertCachedList(ctx, folderID, listID, listName, yearMonth); err != nil {
		r.logger.Warn("Failed to persist list cache row", "list_id", listID, "error", err)
	}
}
