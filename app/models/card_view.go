package models

import "time"

// CardView is one daily rollup row of view counts per card, filled by the
// counter flusher rather than per-request inserts.
type CardView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CardID    uint      `gorm:"not null;index:ux_card_views_card_day,unique,priority:1" json:"card_id"`
	Day       time.Time `gorm:"type:date;not null;index:ux_card_views_card_day,unique,priority:2" json:"day"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
