package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *User {
	return &User{
		ID:          1,
		Email:       "a@b.com",
		Username:    "ab",
		FirstName:   "A",
		LastName:    "B",
		UserType:    UserTypeHomeowner,
		PhotoURL:    StringPtr("https://cdn.example.com/a.png"),
		FirebaseUID: StringPtr("fb-uid-1"),
	}
}

func TestUserClone_IsDeep(t *testing.T) {
	orig := testUser()
	c := orig.Clone()

	require.Equal(t, orig, c)

	*c.PhotoURL = "changed"
	c.FirstName = "Z"
	assert.Equal(t, "https://cdn.example.com/a.png", *orig.PhotoURL)
	assert.Equal(t, "A", orig.FirstName)
}

func TestUserClone_Nil(t *testing.T) {
	var u *User
	assert.Nil(t, u.Clone())
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"both parts", User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", User{FirstName: "Ada"}, "Ada"},
		{"fallback to username", User{Username: "ada_l"}, "ada_l"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.DisplayName())
		})
	}
}

func TestUserType_Valid(t *testing.T) {
	assert.True(t, UserTypeHomeowner.Valid())
	assert.True(t, UserTypeContractor.Valid())
	assert.False(t, UserType("admin").Valid())
}

func TestUserJSON_NullableFields(t *testing.T) {
	u := &User{ID: 7, Email: "c@d.com", UserType: UserTypeContractor}

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "photoURL")
	assert.Nil(t, raw["photoURL"])
	assert.Nil(t, raw["firebaseUid"])
	assert.Equal(t, "contractor", raw["userType"])
}

func TestAuthState_Invariant(t *testing.T) {
	assert.Equal(t, AuthState{}, Anonymous())
	assert.False(t, Anonymous().IsAuthenticated)

	s := Authenticated(testUser())
	assert.True(t, s.IsAuthenticated)
	assert.NotNil(t, s.User)

	assert.Equal(t, Anonymous(), Authenticated(nil))
}

func TestAuthenticated_CopiesUser(t *testing.T) {
	u := testUser()
	s := Authenticated(u)

	u.Email = "mutated@b.com"
	assert.Equal(t, "a@b.com", s.User.Email)
}

func TestAuthStateClone(t *testing.T) {
	s := Authenticated(testUser())
	c := s.Clone()

	c.User.Username = "other"
	assert.Equal(t, "ab", s.User.Username)
	assert.Equal(t, Anonymous(), Anonymous().Clone())
}
