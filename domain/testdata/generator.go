// Package testdata produces the inputs of the end-to-end scenarios: random
// records drawn from fixed vocabularies and hand-picked fixtures.
package testdata

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

var (
	firstNames   = []string{"John", "Jane", "Alex", "Chris", "Sam", "Jordan", "Taylor", "Casey", "Robin", "Drew"}
	lastNames    = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	emailDomains = []string{"example.com", "test.org", "demo.net", "sample.io", "testing.co"}
	streetNames  = []string{"Main St", "Oak Ave", "Pine Rd", "Cedar Ln", "Elm Way", "Maple Dr", "Park Blvd", "First St"}
	cities       = []string{"Springfield", "Franklin", "Georgetown", "Madison", "Clinton", "Washington", "Arlington", "Salem"}
	states       = []string{"CA", "NY", "TX", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}
	genders      = []string{"Male", "Female", "Other"}
	promptWords  = []string{"TestUser123", "RandomPrompt456", "AutomatedTest789", "PlaywrightTest", "E2ETestData", "QAAutomation", "TestScenario"}
)

// Name is a first/last name pair.
type Name struct {
	First string
	Last  string
}

// Full returns "First Last".
func (n Name) Full() string {
	return n.First + " " + n.Last
}

// FormData is the mandatory input of the practice form.
type FormData struct {
	FirstName string
	LastName  string
	Email     string
	Gender    string
	Mobile    string
}

// TextBoxData is the input of the text box form.
type TextBoxData struct {
	FullName         string
	Email            string
	CurrentAddress   string
	PermanentAddress string
}

// Generator produces random test data. A Generator is safe for concurrent use.
// The same seed yields the same sequence.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	seed  uint64
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(seed uint64) *Generator {
	for seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{faker: gofakeit.New(seed), seed: seed}
}

// Seed returns the seed in use; passing it to NewGenerator replays the sequence.
func (g *Generator) Seed() uint64 {
	return g.seed
}

func (g *Generator) pick(list []string) string {
	return g.faker.RandomString(list)
}

// String returns length random characters from [a-z0-9].
func (g *Generator) String(length int) string {
	if length <= 0 {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Password(true, false, true, false, false, length)
}

// Number returns an integer in [min, max].
func (g *Generator) Number(min, max int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Number(min, max)
}

// Email returns a random address on one of the test domains.
func (g *Generator) Email() string {
	local := g.String(8)
	g.mu.Lock()
	defer g.mu.Unlock()
	return local + "@" + g.pick(emailDomains)
}

// Name returns a random first/last name pair.
func (g *Generator) Name() Name {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Name{First: g.pick(firstNames), Last: g.pick(lastNames)}
}

// Address returns "<number> <street>, <city>, <state> <zip>".
func (g *Generator) Address() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	number := g.faker.Number(1, 9999)
	zip := g.faker.Number(10000, 99999)
	return fmt.Sprintf("%d %s, %s, %s %d", number, g.pick(streetNames), g.pick(cities), g.pick(states), zip)
}

// Gender returns Male, Female or Other.
func (g *Generator) Gender() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pick(genders)
}

// Mobile returns ten random digits.
func (g *Generator) Mobile() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Numerify("##########")
}

// PromptText returns a prompt answer: a fixed word followed by 0-999.
func (g *Generator) PromptText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s%d", g.pick(promptWords), g.faker.Number(0, 999))
}

// Username returns a lowercase user name for the account API scenarios.
func (g *Generator) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.ToLower(g.faker.Username())
}

// Password returns a password that satisfies the account API rules:
// upper, lower, digit and special characters.
func (g *Generator) Password() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Password(true, true, true, true, false, 12) + "Aa1!"
}

// UserID returns a random UUID string.
func (g *Generator) UserID() string {
	return uuid.NewString()
}

// FormData returns a random practice form record.
func (g *Generator) FormData() FormData {
	n := g.Name()
	return FormData{
		FirstName: n.First,
		LastName:  n.Last,
		Email:     g.Email(),
		Gender:    g.Gender(),
		Mobile:    g.Mobile(),
	}
}

// TextBoxData returns a random text box record.
func (g *Generator) TextBoxData() TextBoxData {
	n := g.Name()
	return TextBoxData{
		FullName:         n.Full(),
		Email:            g.Email(),
		CurrentAddress:   g.Address(),
		PermanentAddress: g.Address(),
	}
}
