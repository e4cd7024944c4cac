package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
)

const cardViewsKey = "card:counters:views"

// AddCardView increments the pending view counter for a card in Redis
func AddCardView(cardID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(cardID), 10)
	return cache.GetClient().HIncrBy(ctx, cardViewsKey, field, 1).Err()
}

// FlushCardViews drains pending view increments and applies them to the cards
// table plus the per-day rollup rows.
func FlushCardViews() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining so in-flight
	// increments are not lost.
	tmpKey := fmt.Sprintf("%s:tmp:%d", cardViewsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", cardViewsKey, tmpKey).Err(); err != nil {
		// If the key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE cards SET view_count = view_count + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE cards SET view_count = view_count + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	db := database.GetDB()
	if err := db.Exec(builder.String(), args...).Error; err != nil {
		return err
	}

	// Daily rollup rows for analytics reads
	day := time.Now().UTC().Truncate(24 * time.Hour)
	for _, p := range pairs {
		err := db.Exec(
			"INSERT INTO card_views (card_id, day, views, created_at, updated_at) VALUES (?, ?, ?, NOW(), NOW()) "+
				"ON DUPLICATE KEY UPDATE views = views + VALUES(views), updated_at = NOW()",
			p.id, day, p.inc,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
