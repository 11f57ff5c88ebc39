package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Channel 描述一个已注册的数据源
type Channel struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Code   string `gorm:"size:128;uniqueIndex" json:"code"` // 即 Fetcher.Name
	Status string `gorm:"size:32;index" json:"status"`    // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// News 当前快照中的一条新闻；Position 保存快照内顺序
type News struct {
	ID          uint   `gorm:"primaryKey"`
	Position    int    `gorm:"index"`
	Source      string `gorm:"size:128;index"`
	Title       string `gorm:"size:512"`
	Summary     string `gorm:"size:1024"`
	URL         string `gorm:"size:1024"`
	PublishedAt string `gorm:"size:20;index"`
	FetchedAt   string `gorm:"size:20"`
}

// SnapshotMeta 只有一行（ID=1），记录失败来源与更新时间
type SnapshotMeta struct {
	ID            uint           `gorm:"primaryKey"`
	FailedSources datatypes.JSON `gorm:"type:jsonb"`
	TotalSources  int
	RefreshedAt   time.Time // 不使用 UpdatedAt，避免被 gorm 自动改写
}

const (
	snapshotMetaID = 1
	insertBatch    = 200
)

type PostgresStore struct {
	DB *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Channel{}, &News{}, &SnapshotMeta{}); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

// EnsureChannel 确保某个渠道存在
func (p *PostgresStore) EnsureChannel(ctx context.Context, code string) (*Channel, error) {
	ch := &Channel{}
	if err := p.DB.WithContext(ctx).Where("code = ?", code).First(ch).Error; err == nil {
		return ch, nil
	}

	ch = &Channel{Code: code, Status: "active"}
	if err := p.DB.WithContext(ctx).Create(ch).Error; err != nil {
		return nil, err
	}
	return ch, nil
}

// Save 在一个事务内整体替换当前快照
func (p *PostgresStore) Save(ctx context.Context, s Snapshot) error {
	failed, err := json.Marshal(cloneSnapshot(s).FailedSources)
	if err != nil {
		return err
	}
	rows := toRows(s.Items)

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&News{}).Error; err != nil {
			return fmt.Errorf("clear news: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, insertBatch).Error; err != nil {
				return fmt.Errorf("insert news: %w", err)
			}
		}
		meta := &SnapshotMeta{
			ID:            snapshotMetaID,
			FailedSources: datatypes.JSON(failed),
			TotalSources:  s.TotalSources,
			RefreshedAt:   s.UpdatedAt,
		}
		return tx.Save(meta).Error
	})
}

func (p *PostgresStore) Current(ctx context.Context) (Snapshot, error) {
	var meta SnapshotMeta
	err := p.DB.WithContext(ctx).First(&meta, snapshotMetaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}

	var rows []News
	if err := p.DB.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return Snapshot{}, err
	}

	s := Snapshot{TotalSources: meta.TotalSources, UpdatedAt: meta.RefreshedAt}
	if len(meta.FailedSources) > 0 {
		if err := json.Unmarshal(meta.FailedSources, &s.FailedSources); err != nil {
			return Snapshot{}, fmt.Errorf("decode failed sources: %w", err)
		}
	}
	s.Items = fromRows(rows)
	return cloneSnapshot(s), nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRows(items []collector.Item) []News {
	rows := make([]News, 0, len(items))
	for i, it := range items {
		rows = append(rows, News{
			Position:    i,
			Source:      truncateRunesDB(toValidUTF8(it.Source), 128),
			Title:       truncateRunesDB(toValidUTF8(it.Title), 512),
			Summary:     truncateRunesDB(toValidUTF8(it.Summary), 1024),
			URL:         truncateRunesDB(it.URL, 1024),
			PublishedAt: it.PublishedAt,
			FetchedAt:   it.FetchedAt,
		})
	}
	return rows
}

func fromRows(rows []News) []collector.Item {
	items := make([]collector.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, collector.Item{
			Source:      r.Source,
			Title:       r.Title,
			Summary:     r.Summary,
			URL:         r.URL,
			PublishedAt: r.PublishedAt,
			FetchedAt:   r.FetchedAt,
		})
	}
	return items
}
