package dto_test

import (
	"lodge/shared/constant"
	"lodge/shared/dto"
	"lodge/shared/model"
	"lodge/shared/timezone"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestMetadata_FromModel(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	modifiedAt := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	metadata := &dto.Metadata{}
	metadata.FromModel(model.Metadata{
		CreatedAt:  createdAt,
		ModifiedAt: modifiedAt,
		CreatedBy:  "user-1",
		ModifiedBy: "system",
	})

	if want := timezone.Format(createdAt, constant.DateFormat); metadata.CreatedAt != want {
		t.Errorf("expected CreatedAt to be %s, got %s", want, metadata.CreatedAt)
	}

	if want := timezone.Format(modifiedAt, constant.DateFormat); metadata.ModifiedAt != want {
		t.Errorf("expected ModifiedAt to be %s, got %s", want, metadata.ModifiedAt)
	}

	if metadata.CreatedBy != "user-1" || metadata.ModifiedBy != "system" {
		t.Errorf("unexpected actors %s / %s", metadata.CreatedBy, metadata.ModifiedBy)
	}
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    map[string]string
		defaultRequest bool
		expected       dto.QueryParams
	}{
		{
			name: "with all valid parameters",
			queryParams: map[string]string{
				"page":     "2",
				"limit":    "20",
				"sort_by":  "price",
				"sort_dir": "asc",
			},
			expected: dto.QueryParams{Page: 2, Limit: 20, SortBy: "price", SortDir: "ASC"},
		},
		{
			name:           "defaults order newest first",
			queryParams:    map[string]string{},
			defaultRequest: true,
			expected: dto.QueryParams{
				Page:    constant.DefaultValuePage,
				Limit:   constant.DefaultValueLimit,
				SortBy:  constant.DefaultValueSortBy,
				SortDir: constant.DefaultValueSortDir,
			},
		},
		{
			name:        "no defaults and no parameters",
			queryParams: map[string]string{},
			expected:    dto.QueryParams{},
		},
		{
			name:           "invalid page and limit fall back",
			queryParams:    map[string]string{"page": "-1", "limit": "abc"},
			defaultRequest: true,
			expected: dto.QueryParams{
				Page:    constant.DefaultValuePage,
				Limit:   constant.DefaultValueLimit,
				SortBy:  constant.DefaultValueSortBy,
				SortDir: constant.DefaultValueSortDir,
			},
		},
		{
			name:        "unknown sort direction ignored",
			queryParams: map[string]string{"sort_dir": "sideways"},
			expected:    dto.QueryParams{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse("http://example.com/v1/rooms")
			if err != nil {
				t.Fatalf("failed to parse URL: %v", err)
			}

			query := u.Query()
			for key, value := range tt.queryParams {
				query.Set(key, value)
			}
			u.RawQuery = query.Encode()

			req, err := http.NewRequest(http.MethodGet, u.String(), nil)
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}

			queryParams := &dto.QueryParams{}
			queryParams.FromRequest(req, tt.defaultRequest)

			if *queryParams != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, *queryParams)
			}
		})
	}
}

func TestQueryParams_RestrictSort(t *testing.T) {
	q := dto.QueryParams{SortBy: "price; DROP TABLE rooms"}
	q.RestrictSort("price", "capacity")

	if q.SortBy != constant.DefaultValueSortBy {
		t.Errorf("expected SortBy to fall back to %s, got %s", constant.DefaultValueSortBy, q.SortBy)
	}

	q = dto.QueryParams{SortBy: "capacity"}
	q.RestrictSort("price", "capacity")

	if q.SortBy != "capacity" {
		t.Errorf("expected SortBy to stay capacity, got %s", q.SortBy)
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "availability", Value: true, Operator: dto.FilterOperatorEq, Table: "rooms"},
			dto.Filter{Field: "hotel_name", Value: "Lake", Operator: dto.FilterOperatorLike},
			dto.Filter{Field: "room_type", ArgName: "types", Value: []string{"Single", "Double"}, Operator: dto.FilterOperatorIn},
		},
	}

	where, args := group.GetWhereClause()

	for _, fragment := range []string{"rooms.availability = :availability", "LOWER(hotel_name) LIKE LOWER(:hotel_name)", "room_type IN (:types_0, :types_1)", " AND "} {
		if !strings.Contains(where, fragment) {
			t.Errorf("expected where clause to contain %q, got %s", fragment, where)
		}
	}

	if args["hotel_name"] != "%Lake%" {
		t.Errorf("expected like argument to be wrapped, got %v", args["hotel_name"])
	}

	if args["types_1"] != "Double" {
		t.Errorf("expected in argument types_1 to be Double, got %v", args["types_1"])
	}
}

func TestFilter_LikeMatchesWildcardsLiterally(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{value: "Lake", want: "%Lake%"},
		{value: "100%", want: `%100\%%`},
		{value: "sea_side", want: `%sea\_side%`},
		{value: `back\slash`, want: `%back\\slash%`},
	}

	for _, tt := range tests {
		filter := dto.Filter{Field: "hotel_name", Value: tt.value, Operator: dto.FilterOperatorLike}

		where, args := filter.GetWhereClause()
		if where != `LOWER(hotel_name) LIKE LOWER(:hotel_name) ESCAPE '\'` {
			t.Errorf("unexpected like clause %s", where)
		}

		if args["hotel_name"] != tt.want {
			t.Errorf("expected %q to become %q, got %v", tt.value, tt.want, args["hotel_name"])
		}
	}
}

func TestFilterGroup_Empty(t *testing.T) {
	group := dto.FilterGroup{}

	where, args := group.GetWhereClause()
	if where != "" || len(args) != 0 {
		t.Errorf("expected empty where clause, got %q %v", where, args)
	}
}

func TestFilter_EmptyInMatchesNothing(t *testing.T) {
	filter := dto.Filter{Field: "room_id", Value: []string{}, Operator: dto.FilterOperatorIn}

	where, args := filter.GetWhereClause()
	if where != "FALSE" || len(args) != 0 {
		t.Errorf("expected FALSE with no args, got %q %v", where, args)
	}
}

func TestFilterGroup_Nested(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "user_id", Value: "u-1", Operator: dto.FilterOperatorEq},
			dto.FilterGroup{
				Operator: dto.FilterGroupOperatorOr,
				Filters: []any{
					dto.Filter{Field: "start_date", ArgName: "from", Value: "2024-06-01", Operator: dto.FilterOperatorGreaterEq},
					dto.Filter{Field: "end_date", ArgName: "to", Value: "2024-06-05", Operator: dto.FilterOperatorLessEq},
				},
			},
			dto.Filter{Field: "ignored", Operator: "unknown"},
		},
	}

	where, args := group.GetWhereClause()

	expected := "(user_id = :user_id AND (start_date >= :from OR end_date <= :to))"
	if where != expected {
		t.Errorf("expected %q, got %q", expected, where)
	}

	if len(args) != 3 {
		t.Errorf("expected three args, got %v", args)
	}
}
