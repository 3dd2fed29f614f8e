package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/google/uuid"
)

func eq(v string) string { return "eq." + v }

func checkID(op, what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &common.Error{Op: op, Kind: common.KindValidation, Message: "invalid " + what + " id", Err: err}
	}
	return nil
}

func (c *RESTClient) GetUser(ctx context.Context, id string) (models.Profile, error) {
	const op = "users.get"
	if err := checkID(op, "user", id); err != nil {
		return models.Profile{}, err
	}

	var rows []userRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   restPrefix + common.UsersTable,
		query:  url.Values{"select": {"*"}, "id": {eq(id)}},
	}, &rows)
	if err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, &common.Error{Op: op, Kind: common.KindNotFound, Message: "profile not found"}
	}
	return rows[0].profile(), nil
}

func (c *RESTClient) UpdateUser(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	const op = "users.update"
	if err := checkID(op, "user", id); err != nil {
		return models.Profile{}, err
	}
	if patch.Empty() {
		return c.GetUser(ctx, id)
	}

	var rows []userRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPatch,
		path:   restPrefix + common.UsersTable,
		query:  url.Values{"id": {eq(id)}},
		body:   newUserPatch(patch),
		prefer: returnRepresentation,
	}, &rows)
	if err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, &common.Error{Op: op, Kind: common.KindNotFound, Message: "profile not found"}
	}
	return rows[0].profile(), nil
}

func (c *RESTClient) InsertUser(ctx context.Context, p models.NewProfile) (models.Profile, error) {
	const op = "users.insert"
	if err := checkID(op, "user", p.ID); err != nil {
		return models.Profile{}, err
	}

	var rows []userRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   restPrefix + common.UsersTable,
		body: newUserRow{
			ID:                p.ID,
			Username:          p.Username,
			Email:             p.Email,
			PricePerCigarette: numeric(p.UnitPrice),
		},
		prefer: returnRepresentation,
	}, &rows)
	if err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, common.E(op, common.KindDecodeFailure, nil)
	}
	return rows[0].profile(), nil
}

func (c *RESTClient) ListEntries(ctx context.Context, userID string, offset, limit int) ([]models.Entry, error) {
	const op = "entries.list"
	if err := checkID(op, "user", userID); err != nil {
		return nil, err
	}

	var rows []entryRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   restPrefix + common.EntriesTable,
		query: url.Values{
			"select":  {"*"},
			"user_id": {eq(userID)},
			"order":   {"smoked_at.desc,id.desc"},
			"offset":  {strconv.Itoa(offset)},
			"limit":   {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]models.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

func (c *RESTClient) InsertEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	const op = "entries.insert"
	if err := checkID(op, "entry", e.ID); err != nil {
		return models.Entry{}, err
	}

	var rows []entryRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   restPrefix + common.EntriesTable,
		body:   newEntryRow(e),
		prefer: returnRepresentation,
	}, &rows)
	if err != nil {
		return models.Entry{}, err
	}
	if len(rows) == 0 {
		return models.Entry{}, common.E(op, common.KindDecodeFailure, nil)
	}
	return rows[0].entry(), nil
}

func (c *RESTClient) DeleteEntry(ctx context.Context, userID, id string) error {
	const op = "entries.delete"

	var rows []entryRow
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   restPrefix + common.EntriesTable,
		query:  url.Values{"id": {eq(id)}, "user_id": {eq(userID)}},
		prefer: returnRepresentation,
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &common.Error{Op: op, Kind: common.KindNotFound, Message: "entry not found"}
	}
	return nil
}
