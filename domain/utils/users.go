package utils

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// User is an entry of a user list.
type User struct {
	ID    int
	Name  string
	Age   int
	Email string
}

// FilterUsersByAge returns the users with min <= age <= max, in input order.
func FilterUsersByAge(users []User, min, max int) []User {
	out := make([]User, 0)
	for _, u := range users {
		if u.Age >= min && u.Age <= max {
			out = append(out, u)
		}
	}
	return out
}

// SortUsersByName returns a copy of users ordered by name using English
// collation. The input is not modified.
func SortUsersByName(users []User) []User {
	out := slices.Clone(users)
	if out == nil {
		out = []User{}
	}
	c := collate.New(language.English)
	slices.SortStableFunc(out, func(a, b User) int {
		return c.CompareString(a.Name, b.Name)
	})
	return out
}

// FindUserByID returns the user with the given id, or nil.
func FindUserByID(users []User, id int) *User {
	for i := range users {
		if users[i].ID == id {
			u := users[i]
			return &u
		}
	}
	return nil
}

// IsEmailTaken reports whether any user has exactly this email.
func IsEmailTaken(users []User, email string) bool {
	return slices.ContainsFunc(users, func(u User) bool { return u.Email == email })
}
