package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b float64) float64
		a, b float64
		want float64
	}{
		{"add positives", Add, 2, 3, 5},
		{"add mixed", Add, 5, -3, 2},
		{"add negatives", Add, -2, -3, -5},
		{"add zero", Add, 0, 5, 5},
		{"subtract positives", Subtract, 5, 3, 2},
		{"subtract negative", Subtract, 5, -3, 8},
		{"subtract from negative", Subtract, -5, 3, -8},
		{"subtract negatives", Subtract, -5, -3, -2},
		{"subtract from zero", Subtract, 0, 5, -5},
		{"multiply positives", Multiply, 2, 3, 6},
		{"multiply mixed", Multiply, 5, -3, -15},
		{"multiply negatives", Multiply, -2, -3, 6},
		{"multiply zero", Multiply, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.a, tt.b))
		})
	}
}

func TestDivide(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{6, 3, 2},
		{6, -3, -2},
		{-6, 3, -2},
		{-6, -3, 2},
		{5, 2, 2.5},
	}
	for _, tt := range tests {
		got, err := Divide(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Divide(5, 0)
	assert.ErrorIs(t, err, ErrDivideByZero)
	assert.EqualError(t, err, "Cannot divide by zero")
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Hello", Capitalize("hello"))
	assert.Equal(t, "Hello", Capitalize("Hello"))
	assert.Equal(t, "A", Capitalize("a"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "Élan", Capitalize("élan"))
}

func TestReverseString(t *testing.T) {
	assert.Equal(t, "olleh", ReverseString("hello"))
	assert.Equal(t, "radar", ReverseString("radar"))
	assert.Equal(t, "", ReverseString(""))
	assert.Equal(t, "a", ReverseString("a"))

	// "e" followed by a combining acute accent stays one cluster.
	assert.Equal(t, "xe\u0301", ReverseString("e\u0301x"))
	assert.Equal(t, "zepóL", ReverseString("López"))
}

func TestIsPalindrome(t *testing.T) {
	for _, s := range []string{"radar", "level", "madam", "", "a"} {
		assert.True(t, IsPalindrome(s), s)
	}
	for _, s := range []string{"hello", "world", "Radar"} {
		assert.False(t, IsPalindrome(s), s)
	}
}

func TestFindMaxMin(t *testing.T) {
	assert.Equal(t, 5.0, FindMax([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, -1.0, FindMax([]float64{-5, -3, -1, -10}))
	assert.True(t, math.IsInf(FindMax(nil), -1))

	assert.Equal(t, 1.0, FindMin([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, -10.0, FindMin([]float64{-5, -3, -1, -10}))
	assert.True(t, math.IsInf(FindMin([]float64{}), 1))
}

func TestRemoveDuplicates(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5}, RemoveDuplicates([]int{1, 2, 2, 3, 4, 4, 5}))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, RemoveDuplicates([]int{1, 2, 3, 4, 5}))
	assert.Equal(t, []int{5}, RemoveDuplicates([]int{5, 5, 5, 5}))
	assert.Equal(t, []int{}, RemoveDuplicates([]int{}))
	assert.Equal(t, []string{"b", "a"}, RemoveDuplicates([]string{"b", "a", "b"}))
}

var sampleUsers = []User{
	{ID: 1, Name: "John", Age: 25, Email: "john@example.com"},
	{ID: 2, Name: "Alice", Age: 30, Email: "alice@example.com"},
	{ID: 3, Name: "Bob", Age: 20, Email: "bob@example.com"},
	{ID: 4, Name: "Charlie", Age: 35, Email: "charlie@example.com"},
}

func names(users []User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Name
	}
	return out
}

func TestFilterUsersByAge(t *testing.T) {
	assert.Equal(t, []string{"John", "Alice"}, names(FilterUsersByAge(sampleUsers, 25, 32)))
	assert.Equal(t, []string{"John", "Bob"}, names(FilterUsersByAge(sampleUsers, 20, 25)))
	assert.Empty(t, FilterUsersByAge(sampleUsers, 40, 50))
	assert.Empty(t, FilterUsersByAge(nil, 20, 30))
}

func TestSortUsersByName(t *testing.T) {
	original := append([]User(nil), sampleUsers...)

	sorted := SortUsersByName(sampleUsers)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie", "John"}, names(sorted))
	assert.Equal(t, original, sampleUsers, "input must not be modified")

	assert.Empty(t, SortUsersByName(nil))
	assert.NotNil(t, SortUsersByName(nil))

	accented := SortUsersByName([]User{{Name: "Zoe"}, {Name: "Émile"}, {Name: "adam"}})
	assert.Equal(t, []string{"adam", "Émile", "Zoe"}, names(accented))
}

func TestFindUserByID(t *testing.T) {
	u := FindUserByID(sampleUsers, 2)
	require.NotNil(t, u)
	assert.Equal(t, "Alice", u.Name)

	assert.Nil(t, FindUserByID(sampleUsers, 999))
	assert.Nil(t, FindUserByID(nil, 1))
}

func TestIsEmailTaken(t *testing.T) {
	assert.True(t, IsEmailTaken(sampleUsers, "john@example.com"))
	assert.False(t, IsEmailTaken(sampleUsers, "unknown@example.com"))
	assert.False(t, IsEmailTaken(sampleUsers, "JOHN@example.com"))
	assert.False(t, IsEmailTaken(nil, "test@example.com"))
}

func TestCheckStudentKnowledge(t *testing.T) {
	correct := map[string]string{"question1": "answer1", "question2": "answer2", "question3": "answer3"}

	tests := []struct {
		name    string
		answers map[string]string
		want    bool
	}{
		{"all correct", map[string]string{"question1": "answer1", "question2": "answer2", "question3": "answer3"}, true},
		{"one wrong", map[string]string{"question1": "answer1", "question2": "wrong answer", "question3": "answer3"}, false},
		{"fewer answers", map[string]string{"question1": "answer1", "question2": "answer2"}, false},
		{"more answers", map[string]string{"question1": "answer1", "question2": "answer2", "question3": "answer3", "question4": "answer4"}, false},
		{"different keys", map[string]string{"question1": "answer1", "question2": "answer2", "wrongQuestion": "answer3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckStudentKnowledge(tt.answers, correct))
		})
	}

	assert.True(t, CheckStudentKnowledge(map[string]string{}, map[string]string{}))
}
