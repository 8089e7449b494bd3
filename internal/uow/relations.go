package uow

import (
	"reflect"

	"gorm.io/gorm/schema"
)

// belongsTo returns the related objects assigned to inst's belongs-to fields.
func (s *Session) belongsTo(inst *Instance) []relatedObject {
	var out []relatedObject
	ctx := s.ctx()
	for _, rel := range inst.schema.Relationships.BelongsTo {
		v, zero := rel.Field.ValueOf(ctx, inst.rv)
		if zero || v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			continue
		}
		out = append(out, relatedObject{rel: rel, obj: v, rv: rv.Elem()})
	}
	return out
}

type relatedObject struct {
	rel *schema.Relationship
	obj any
	rv  reflect.Value
}

// cascade adds unsaved objects referenced through belongs-to fields.
func (s *Session) cascade() error {
	// Added instances are appended to s.order and visited by the same loop.
	for idx := 0; idx < len(s.order); idx++ {
		inst := s.order[idx]
		if inst.state != StatePending && inst.state != StatePersistent {
			continue
		}
		for _, ro := range s.belongsTo(inst) {
			if _, ok := s.byPtr[ro.obj]; ok {
				continue
			}
			if identityOf(s.ctx(), ro.rel.FieldSchema, ro.rv) != "" {
				// Saved elsewhere; only the key is copied.
				continue
			}
			if err := s.Add(ro.obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// foreignKeyRewrites reports the foreign key values inst's belongs-to fields
// will write. Keys of related objects that are still pending are marked Pending.
func (s *Session) foreignKeyRewrites(inst *Instance) map[string]Change {
	out := map[string]Change{}
	ctx := s.ctx()
	for _, ro := range s.belongsTo(inst) {
		related := s.byPtr[ro.obj]
		pending := related != nil && related.state == StatePending
		for _, ref := range ro.rel.References {
			if ref.OwnPrimaryKey || ref.PrimaryKey == nil {
				continue
			}
			if pending {
				out[ref.ForeignKey.DBName] = Change{Column: ref.ForeignKey.DBName, Pending: true}
				continue
			}
			v, zero := ref.PrimaryKey.ValueOf(ctx, ro.rv)
			if zero {
				continue
			}
			out[ref.ForeignKey.DBName] = Change{Column: ref.ForeignKey.DBName, New: detach(v)}
		}
	}
	return out
}

// syncForeignKeys copies related primary keys into inst's foreign key fields.
func (s *Session) syncForeignKeys(inst *Instance) error {
	ctx := s.ctx()
	for _, ro := range s.belongsTo(inst) {
		for _, ref := range ro.rel.References {
			if ref.OwnPrimaryKey || ref.PrimaryKey == nil {
				continue
			}
			v, zero := ref.PrimaryKey.ValueOf(ctx, ro.rv)
			if zero {
				continue
			}
			if err := assign(ctx, ref.ForeignKey, inst.rv, Indirect(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// insertOrder sorts pending instances so belongs-to targets come first.
func (s *Session) insertOrder(pending []*Instance) []*Instance {
	out := make([]*Instance, 0, len(pending))
	visited := make(map[*Instance]bool, len(pending))
	var visit func(inst *Instance)
	visit = func(inst *Instance) {
		if visited[inst] {
			return
		}
		visited[inst] = true
		for _, ro := range s.belongsTo(inst) {
			if related, ok := s.byPtr[ro.obj]; ok && related.state == StatePending {
				visit(related)
			}
		}
		out = append(out, inst)
	}
	for _, inst := range pending {
		visit(inst)
	}
	return out
}
