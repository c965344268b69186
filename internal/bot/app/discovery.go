package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/profilebot/internal/bot/catalog"
	"github.com/dmitrijs2005/profilebot/internal/bot/repositories/items"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// Discover walks up to MaxPages pages of free trending items and records
// unknown ones as unvisited. It returns the new names sorted or, when
// nothing is new, every unvisited name. A failed page ends the walk
// without failing discovery.
func (app *App) Discover(ctx context.Context) ([]string, error) {
	fresh := map[string]struct{}{}

	for page := 1; page <= app.config.MaxPages; page++ {
		list, err := app.catalog.ListTrending(ctx, catalog.FreeTrending(page, app.config.PageSize))
		if err != nil {
			if errors.Is(err, common.ErrNoModelToken) || ctx.Err() != nil {
				return nil, err
			}
			app.logger.Warn(ctx, "trending page failed, stopping discovery", "page", page, logging.KeyError, err)
			break
		}
		if len(list) == 0 {
			break
		}

		for _, m := range list {
			if m.Name == "" || m.ID == "" {
				continue
			}
			_, err := app.items.Get(ctx, m.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, common.ErrNotFound) {
				return nil, err
			}
			if err := app.items.Add(ctx, items.NewItem(m.Name, m.ID, false)); err != nil {
				return nil, err
			}
			fresh[m.Name] = struct{}{}
		}
	}

	if err := app.items.Save(ctx); err != nil {
		return nil, fmt.Errorf("save catalog: %w", err)
	}

	names := make([]string, 0, len(fresh))
	if len(fresh) == 0 {
		unvisited, err := app.items.Unvisited(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range unvisited {
			names = append(names, it.Name)
		}
		app.logger.Info(ctx, "no new items, resuming unvisited", "count", len(names))
		return names, nil
	}

	for name := range fresh {
		names = append(names, name)
	}
	sort.Strings(names)
	app.logger.Info(ctx, "discovered new items", "count", len(names))
	return names, nil
}
