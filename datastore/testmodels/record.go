/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package testmodels

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/storeflow/storagemodels"
)

// Entity is the entity name RatingSystem records are stored under.
const Entity = "RatingSystem"

// IndexMap is the single-table key layout used by the DynamoDB persister.
var IndexMap = map[string]string{
	"PK": "RATINGSYSTEM#{Id}",
	"SK": "{objectId}",
}

var _ storagemodels.PureValue = RatingSystem{}

func (RatingSystem) EntityName() string { return Entity }
func (RatingSystem) PrimaryKey() string { return "Id" }

func (r RatingSystem) PrimaryValue() any {
	if r.ID == nil {
		return nil
	}
	return *r.ID
}

func (r RatingSystem) RecordFields() map[string]any {
	fields := map[string]any{
		"Score":   r.Score,
		"SiteUrl": r.SiteURL,
	}
	if r.ID != nil {
		fields["Id"] = *r.ID
	}
	if r.Name != nil {
		fields["Name"] = *r.Name
	}
	if r.Description != nil {
		fields["Description"] = *r.Description
	}
	if r.CreatedAt != nil {
		fields["CreatedAt"] = time.Time(*r.CreatedAt)
	}
	if r.UpdatedAt != nil {
		fields["UpdatedAt"] = time.Time(*r.UpdatedAt)
	}
	return fields
}

// FromRecord fills r from a stored record.
func (r *RatingSystem) FromRecord(rec *storagemodels.Record) error {
	if rec.EntityName() != Entity {
		return fmt.Errorf("record %s is not a %s", rec, Entity)
	}
	*r = RatingSystem{SiteURL: rec.Text("SiteUrl")}
	if _, ok := rec.Field("Id"); ok {
		r.ID = strptr(rec.Text("Id"))
	}
	if _, ok := rec.Field("Name"); ok {
		r.Name = strptr(rec.Text("Name"))
	}
	if _, ok := rec.Field("Description"); ok {
		r.Description = strptr(rec.Text("Description"))
	}
	if _, ok := rec.Field("Score"); ok {
		score, err := rec.Int64("Score")
		if err != nil {
			return err
		}
		r.Score = score
	}
	for name, dst := range map[string]**strfmt.DateTime{"CreatedAt": &r.CreatedAt, "UpdatedAt": &r.UpdatedAt} {
		if _, ok := rec.Field(name); !ok {
			continue
		}
		t, err := rec.Time(name)
		if err != nil {
			return err
		}
		dt := strfmt.DateTime(t)
		*dst = &dt
	}
	return nil
}

// New returns a rating system stamped with now.
func New(id, name string, score int64) RatingSystem {
	now := strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))
	return RatingSystem{
		ID:          strptr(id),
		Name:        strptr(name),
		Description: strptr(name + " rating system"),
		Score:       score,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
}

// Generate returns n rating systems with ids "rs-0" to "rs-<n-1>" and score
// equal to their index.
func Generate(n int) []RatingSystem {
	out := make([]RatingSystem, n)
	for i := range out {
		out[i] = New(fmt.Sprintf("rs-%d", i), fmt.Sprintf("system %d", i), int64(i))
	}
	return out
}

// ID returns the id of r, or "" when unset.
func ID(r RatingSystem) string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

func strptr(s string) *string { return &s }
