package utils

import "maps"

// CheckStudentKnowledge reports whether the student answered exactly the
// expected questions and every answer is correct.
func CheckStudentKnowledge(answers, correct map[string]string) bool {
	return maps.Equal(answers, correct)
}
