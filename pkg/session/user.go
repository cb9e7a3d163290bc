package session

import "encoding/json"

// User is the profile the backend returns at login. It is stored next to the
// credential for display and never consulted for authorization. Fields the
// console does not model are kept in Extra so a save/load cycle is lossless.
type User struct {
	ID    string
	Name  string
	Email string
	Role  string
	Extra map[string]any
}

type userFields struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

var knownUserKeys = []string{"_id", "name", "email", "role"}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+len(knownUserKeys))
	for k, v := range u.Extra {
		out[k] = v
	}
	for _, k := range knownUserKeys {
		delete(out, k)
	}
	if u.ID != "" {
		out["_id"] = u.ID
	}
	if u.Name != "" {
		out["name"] = u.Name
	}
	if u.Email != "" {
		out["email"] = u.Email
	}
	if u.Role != "" {
		out["role"] = u.Role
	}
	return json.Marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	for _, k := range knownUserKeys {
		delete(extra, k)
	}
	if len(extra) == 0 {
		extra = nil
	}

	*u = User{
		ID:    fields.ID,
		Name:  fields.Name,
		Email: fields.Email,
		Role:  fields.Role,
		Extra: extra,
	}
	return nil
}

// DisplayName prefers the name, then the email, then the id.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}
