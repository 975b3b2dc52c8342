package testdata

import "strconv"

// Text box fixtures.
var (
	TextBoxEdgeCases = TextBoxData{
		FullName:         "John Doe Smith",
		Email:            "john.doe.smith@testmail.com",
		CurrentAddress:   "123 Main Street, New York, NY 10001",
		PermanentAddress: "456 Oak Avenue, Los Angeles, CA 90210",
	}

	TextBoxEmptyFields = TextBoxData{}

	TextBoxSpecialCharacters = TextBoxData{
		FullName:         "José María González-López",
		Email:            "jose.maria@domain-test.co.uk",
		CurrentAddress:   "123 Main St. Apt 5B, São Paulo, SP 01234-567",
		PermanentAddress: "456 Oak Ave. Suite 10C, México D.F., MX 12345",
	}
)

// NamedForm pairs a practice form record with a scenario name.
type NamedForm struct {
	Name string
	Data FormData
}

// FormEdgeCases are the fixed practice form records.
var FormEdgeCases = []NamedForm{
	{
		Name: "Long names test",
		Data: FormData{
			FirstName: "Christopher",
			LastName:  "Willoughby-Thompson",
			Email:     "christopher.willoughby@longdomain.example.com",
			Gender:    "Male",
			Mobile:    "1111222233",
		},
	},
	{
		Name: "Special characters test",
		Data: FormData{
			FirstName: "José",
			LastName:  "O'Connor",
			Email:     "jose.oconnor@domain.co.uk",
			Gender:    "Female",
			Mobile:    "9999888877",
		},
	},
}

// RandomForms returns n generated records named "Random data set 1..n".
func (g *Generator) RandomForms(n int) []NamedForm {
	out := make([]NamedForm, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, NamedForm{
			Name: "Random data set " + strconv.Itoa(i),
			Data: g.FormData(),
		})
	}
	return out
}
