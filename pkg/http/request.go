package http

import (
	"net/http"
	"strconv"

	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
)

// Actor identity headers set by the upstream auth proxy.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractActor builds the caller identity from request headers. The
// core never reads ambient session state; every operation receives an
// explicit actor.
func ExtractActor(r *http.Request) (model.Actor, error) {
	actor := model.Actor{
		ID:   r.Header.Get(HeaderActorID),
		Role: r.Header.Get(HeaderActorRole),
	}

	if actor.ID == "" {
		return model.Actor{}, apperrors.Unauthorized("missing " + HeaderActorID + " header")
	}
	if actor.Rank() == 0 {
		return model.Actor{}, apperrors.Unauthorized("unknown actor role: " + actor.Role)
	}

	return actor, nil
}
