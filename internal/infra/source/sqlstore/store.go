package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"fitcore/internal/catalog"
	"fitcore/pkg/domain"
)

// Migrate applies the dialect DDL.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.DDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Save replaces the stored catalog with data in one transaction.
func Save(ctx context.Context, db *sql.DB, d Dialect, data catalog.Data) (retErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	w := writer{ctx: ctx, tx: tx, dialect: d}
	for _, a := range data.Attributes {
		w.insert("attributes", []string{"id", "max_attr_id", "default_value", "high_is_good", "stackable"},
			a.ID, a.MaxAttrID, a.Default, a.HighIsGood, a.Stackable)
	}
	for _, e := range data.Effects {
		w.insert("effects", []string{"id", "category"}, e.ID, e.Category)
		for i, m := range e.Modifiers {
			w.insert("modifiers",
				[]string{"effect_id", "position", "filter", "domain", "group_id", "skill_id", "target_attr", "operator", "source_attr", "procedure"},
				e.ID, i, m.Filter, m.Domain, m.Group, m.Skill, m.TargetAttr, m.Operator, m.SourceAttr, m.Procedure)
		}
	}
	for _, t := range data.Types {
		w.insert("types", []string{"id", "group_id", "category_id"}, t.ID, t.GroupID, t.CategoryID)
		for _, attr := range sortedAttrs(t.Attrs) {
			w.insert("type_attributes", []string{"type_id", "attr_id", "value"}, t.ID, attr, t.Attrs[attr])
		}
		for i, effect := range t.Effects {
			w.insert("type_effects", []string{"type_id", "position", "effect_id"}, t.ID, i, effect)
		}
	}
	if w.err != nil {
		return w.err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// writer stops at the first failed insert.
type writer struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
	err     error
}

func (w *writer) insert(table string, cols []string, args ...any) {
	if w.err != nil {
		return
	}
	binds := make([]string, len(cols))
	for i := range cols {
		binds[i] = w.dialect.Bind(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(binds, ", "))
	if _, err := w.tx.ExecContext(w.ctx, stmt, args...); err != nil {
		w.err = fmt.Errorf("insert %s: %w", table, err)
	}
}

// Load reads the stored catalog. Entries come back ordered by id; effects
// and modifiers keep their stored positions.
func Load(ctx context.Context, db *sql.DB) (catalog.Data, error) {
	var data catalog.Data
	err := query(ctx, db, "SELECT id, max_attr_id, default_value, high_is_good, stackable FROM attributes", func(rows *sql.Rows) error {
		var a catalog.AttributeData
		var def sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.MaxAttrID, &def, &a.HighIsGood, &a.Stackable); err != nil {
			return err
		}
		if def.Valid {
			v := def.Float64
			a.Default = &v
		}
		data.Attributes = append(data.Attributes, a)
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}

	type positioned struct {
		pos int
		mod catalog.ModifierData
	}
	mods := make(map[domain.EffectID][]positioned)
	err = query(ctx, db, "SELECT effect_id, position, filter, domain, group_id, skill_id, target_attr, operator, source_attr, procedure FROM modifiers", func(rows *sql.Rows) error {
		var effect domain.EffectID
		var p positioned
		m := &p.mod
		if err := rows.Scan(&effect, &p.pos, &m.Filter, &m.Domain, &m.Group, &m.Skill, &m.TargetAttr, &m.Operator, &m.SourceAttr, &m.Procedure); err != nil {
			return err
		}
		mods[effect] = append(mods[effect], p)
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}
	err = query(ctx, db, "SELECT id, category FROM effects", func(rows *sql.Rows) error {
		var e catalog.EffectData
		var category int64
		if err := rows.Scan(&e.ID, &category); err != nil {
			return err
		}
		e.Category = domain.EffectCategory(category)
		list := mods[e.ID]
		sort.Slice(list, func(i, j int) bool { return list[i].pos < list[j].pos })
		for _, p := range list {
			e.Modifiers = append(e.Modifiers, p.mod)
		}
		data.Effects = append(data.Effects, e)
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}

	attrs := make(map[domain.TypeID]map[domain.AttrID]float64)
	err = query(ctx, db, "SELECT type_id, attr_id, value FROM type_attributes", func(rows *sql.Rows) error {
		var typeID domain.TypeID
		var attr domain.AttrID
		var v float64
		if err := rows.Scan(&typeID, &attr, &v); err != nil {
			return err
		}
		if attrs[typeID] == nil {
			attrs[typeID] = make(map[domain.AttrID]float64)
		}
		attrs[typeID][attr] = v
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}
	type effectRef struct {
		pos int
		id  domain.EffectID
	}
	effects := make(map[domain.TypeID][]effectRef)
	err = query(ctx, db, "SELECT type_id, position, effect_id FROM type_effects", func(rows *sql.Rows) error {
		var typeID domain.TypeID
		var ref effectRef
		if err := rows.Scan(&typeID, &ref.pos, &ref.id); err != nil {
			return err
		}
		effects[typeID] = append(effects[typeID], ref)
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}
	err = query(ctx, db, "SELECT id, group_id, category_id FROM types", func(rows *sql.Rows) error {
		var t catalog.TypeData
		if err := rows.Scan(&t.ID, &t.GroupID, &t.CategoryID); err != nil {
			return err
		}
		t.Attrs = attrs[t.ID]
		refs := effects[t.ID]
		sort.Slice(refs, func(i, j int) bool { return refs[i].pos < refs[j].pos })
		for _, ref := range refs {
			t.Effects = append(t.Effects, ref.id)
		}
		data.Types = append(data.Types, t)
		return nil
	})
	if err != nil {
		return catalog.Data{}, err
	}

	sort.Slice(data.Attributes, func(i, j int) bool { return data.Attributes[i].ID < data.Attributes[j].ID })
	sort.Slice(data.Effects, func(i, j int) bool { return data.Effects[i].ID < data.Effects[j].ID })
	sort.Slice(data.Types, func(i, j int) bool { return data.Types[i].ID < data.Types[j].ID })
	return data, nil
}

func query(ctx context.Context, db *sql.DB, stmt string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("query %q: %w", stmt, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %q: %w", stmt, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %q: %w", stmt, err)
	}
	return nil
}

func sortedAttrs(attrs map[domain.AttrID]float64) []domain.AttrID {
	out := make([]domain.AttrID, 0, len(attrs))
	for attr := range attrs {
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
