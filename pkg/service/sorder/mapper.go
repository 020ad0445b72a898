package sorder

import (
	"fmt"
	"strings"

	"github.com/israelwong/zen-sub001/pkg/dbtime"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func selectColumns(t morder.Table) string {
	parent := "NULL"
	if t.ParentColumn != "" {
		parent = t.ParentColumn
	}
	return strings.Join([]string{"id", "studio_id", parent, "name", "orden", "is_active", "created_at", "updated_at"}, ", ")
}

func scanItem(row rowScanner) (morder.Item, error) {
	var (
		item      morder.Item
		parent    idwrap.NullIDWrap
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&item.ID, &item.StudioID, &parent, &item.Name, &item.Rank, &item.Active, &createdAt, &updatedAt); err != nil {
		return morder.Item{}, err
	}
	item.ParentID = parent.Ptr()
	item.CreatedAt = dbtime.FromMillis(createdAt)
	item.UpdatedAt = dbtime.FromMillis(updatedAt)
	return item, nil
}

func mustTable(c morder.Collection) morder.Table {
	t, err := c.Table()
	if err != nil {
		panic(fmt.Sprintf("sorder: %v", err))
	}
	return t
}
