package shared

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"lodge/shared/cache"
	"lodge/shared/constant"
	"lodge/shared/dto"
	"lodge/shared/timezone"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Identity is the caller resolved upstream by the auth middleware.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == constant.RoleAdmin
}

// IsPrivileged reports whether the caller may act on records it does not own.
func (i Identity) IsPrivileged() bool {
	return i.Role == constant.RoleAdmin || i.Role == constant.RoleSystem
}

func (i Identity) Authenticated() bool {
	return i.UserID != constant.Empty || i.Role == constant.RoleSystem
}

func IdentityFromContext(ctx context.Context) Identity {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	email, _ := ctx.Value(constant.ContextKeyUserEmail).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return Identity{UserID: userID, Email: email, Role: role}
}

func ConvertStringToBool(value string) *bool {
	if value == "" {
		return nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert string to bool")

		return nil
	}

	return &boolValue
}

func ConvertStringToInt(value string) (int, error) {
	res, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	return res, nil
}

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

// TransformFields converts the fields of a struct into a map of updated fields.
// Zero values and fields without a db tag are skipped.
func TransformFields(data interface{}, username string) map[string]any {
	val := reflect.ValueOf(data)
	typ := reflect.TypeOf(data)

	updatedFields := make(map[string]any)

	for index := range val.NumField() {
		field := val.Field(index)
		if field.IsZero() {
			continue
		}

		fieldName := typ.Field(index).Tag.Get("db")
		if fieldName == "" || fieldName == "-" {
			continue
		}

		if field.Kind() == reflect.Pointer {
			updatedFields[fieldName] = field.Elem().Interface()

			continue
		}

		updatedFields[fieldName] = field.Interface()
	}

	updatedFields[constant.FieldModifiedAt] = timezone.Now()
	updatedFields[constant.FieldModifiedBy] = username

	return updatedFields
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// BuildCacheKeyWithQuery derives a stable key from the listing parameters.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	raw, err := json.Marshal(struct {
		Params dto.QueryParams
		Filter dto.FilterGroup
	}{params, filter})
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to marshal cache key query")

		return prefix
	}

	sum := sha1.Sum(raw) //nolint:gosec

	return BuildCacheKey(prefix, hex.EncodeToString(sum[:]))
}

func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}
