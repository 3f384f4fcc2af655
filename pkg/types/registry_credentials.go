package types

// RegistryCredentials holds basic auth credentials.
type RegistryCredentials struct {
	Username string `json:"username"` // Registry username.
	Password string `json:"password"` // Registry token or password.
}

// Empty reports whether no credentials were supplied.
func (c RegistryCredentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}
