package tokens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("token malformed")

// Claims holds the payload fields the session guard consumes.
// HasExpiration distinguishes an absent `exp` from `exp: 0`.
type Claims struct {
	Expiration    int64
	HasExpiration bool
	Role          string
}

// segmentParser only decodes; it never sees a key.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

/*
Decode extracts [Claims] from the payload segment of a three segment
credential. The header and signature segments are not inspected and the
signature is NOT verified, so the result must never be treated as proof of
identity. Every failure wraps [ErrMalformedToken].
*/
func Decode(credential string) (*Claims, error) {
	_, encClaims, _, err := validateStructure(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	fields := map[string]json.RawMessage{}
	if err := decodeJWTSection(encClaims, &fields); err != nil {
		return nil, fmt.Errorf("%w: payload %v", ErrMalformedToken, err)
	}

	claims := &Claims{}
	if raw, ok := fields["exp"]; ok && !isNull(raw) {
		exp, err := parseExpiration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		claims.Expiration = exp
		claims.HasExpiration = true
	}
	if raw, ok := fields["role"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &claims.Role); err != nil {
			return nil, fmt.Errorf("%w: role is not a string", ErrMalformedToken)
		}
	}

	return claims, nil
}

func validateStructure(tokenStr string) (
	header string,
	claims string,
	signature string,
	err error,
) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		err = fmt.Errorf("JWT expected three parts, found %d", len(parts))
		return
	}
	header = parts[0]
	claims = parts[1]
	signature = parts[2]
	return
}

func decodeJWTSection(str string, fields *map[string]json.RawMessage) error {
	bytes, err := segmentParser.DecodeSegment(str)
	if err != nil {
		return fmt.Errorf("invalid base64url encoding: %v", err)
	}
	if err := json.Unmarshal(bytes, fields); err != nil {
		return fmt.Errorf("not valid JSON: %v", err)
	}
	// `null` unmarshals cleanly into a map and leaves it nil
	if *fields == nil {
		return fmt.Errorf("not a JSON object")
	}
	return nil
}

func parseExpiration(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, fmt.Errorf("exp is not a number")
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, fmt.Errorf("exp is not a number")
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}

	// exponent forms such as 1.7e9 are still integral seconds
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("exp is not an integer: %s", n)
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
