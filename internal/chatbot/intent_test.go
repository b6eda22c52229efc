package chatbot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackitnow-backend/internal/store"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name    string
		message string
		action  Action
		code    string
	}{
		{"french user count", "combien d'utilisateurs", ActionCountUsers, ""},
		{"typographic apostrophe", "combien d’utilisateurs ?", ActionCountUsers, ""},
		{"english user count", "How many users are registered?", ActionCountUsers, ""},
		{"count word", "Count", ActionCountUsers, ""},
		{"register", "how do I register?", ActionRegistration, ""},
		{"account is not count", "I want to create an account", ActionRegistration, ""},
		{"french registration", "je veux m'inscrire", ActionRegistration, ""},
		{"french account", "Créer un compte", ActionRegistration, ""},
		{"password", "I forgot my password", ActionLogin, ""},
		{"french login", "comment se connecter", ActionLogin, ""},
		{"french parcel count", "combien de colis", ActionCountParcels, ""},
		{"english parcel count", "how many parcels are there", ActionCountParcels, ""},
		{"status without code", "statut du colis", ActionParcelStatus, ""},
		{"status with code", "ABC123XYZ statut", ActionParcelStatus, "ABC123XYZ"},
		{"where is", "where is my package XYZ789", ActionParcelStatus, "XYZ789"},
		{"lowercase code ignored", "statut du colis abc123xyz", ActionParcelStatus, ""},
		{"dashboard", "show me the dashboard", ActionDashboard, ""},
		{"french dashboard", "le tableau de bord", ActionDashboard, ""},
		{"latest", "latest parcels", ActionDashboard, ""},
		{"modify", "how do I modify a parcel", ActionModifyParcel, ""},
		{"modify before delete", "modify or delete a parcel", ActionModifyParcel, ""},
		{"delete", "supprimer un colis", ActionDeleteParcel, ""},
		{"delete account is parcel domain", "delete my account", ActionDeleteParcel, ""},
		{"accept", "comment accepter un colis", ActionAcceptOrRefuse, ""},
		{"refuse", "refuse delivery", ActionAcceptOrRefuse, ""},
		{"bare parcel with code", "colis ABC123", ActionParcelStatus, "ABC123"},
		{"bare parcel", "colis", ActionCountParcels, ""},
		{"users and parcels", "how many users have a parcel", ActionCountParcels, ""},
		{"users and status", "utilisateurs statut", ActionParcelStatus, ""},
		{"unknown", "bonjour", ActionUnresolved, ""},
		{"bare code", "ABC123XYZ", ActionUnresolved, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message, store.SessionContext{})
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.code, got.TrackingCode())
			if tt.code == "" {
				assert.NotContains(t, got.Details, DetailTrackingCode)
			}
		})
	}
}

func TestClassify_ParcelKeywordsOverrideUserKeywords(t *testing.T) {
	c := DefaultClassifier()
	userOnly := []string{"users", "registered users", "how many", "inscrits", "combien d'utilisateurs"}
	parcelWords := []string{"colis", "parcel", "status", "dashboard", "courier", "livreur", "refuser"}

	for _, u := range userOnly {
		assert.Equal(t, ActionCountUsers, c.Classify(u, nil).Action, u)
		for _, p := range parcelWords {
			msg := u + " " + p
			got := c.Classify(msg, nil).Action
			assert.NotEqual(t, ActionCountUsers, got, msg)
			assert.NotEqual(t, ActionUnresolved, got, msg)
		}
	}
}

func TestClassify_TrackingCodeExtraction(t *testing.T) {
	c := DefaultClassifier()

	withRun := map[string]string{
		"statut A1B2C3D4":          "A1B2C3D4",
		"statut 123456":            "123456",
		"statut xxABCDEFyy":        "ABCDEF",
		"tracking ZZ9999 and AB12": "ZZ9999",
		"status of parcel QWERTY":  "QWERTY",
	}
	for msg, code := range withRun {
		assert.Equal(t, code, c.Classify(msg, nil).TrackingCode(), msg)
	}

	for _, msg := range []string{"statut ABC12", "statut abcdef", "statut AB-CD-EF", "status"} {
		got := c.Classify(msg, nil)
		assert.Equal(t, ActionParcelStatus, got.Action, msg)
		assert.NotContains(t, got.Details, DetailTrackingCode, msg)
	}
}

func TestClassify_ContextCodeFallback(t *testing.T) {
	c := DefaultClassifier()
	sc := store.SessionContext{store.KeyTrackingCode: "OLD123"}

	assert.Equal(t, "OLD123", c.Classify("quel est le statut du colis", sc).TrackingCode())
	assert.Equal(t, "NEW456", c.Classify("statut NEW456", sc).TrackingCode(), "message code wins")
	assert.Equal(t, ActionCountParcels, c.Classify("colis", sc).Action, "context never turns a bare parcel question into a status")
}

func TestClassify_Pure(t *testing.T) {
	c := DefaultClassifier()
	sc := store.SessionContext{store.KeyTrackingCode: "OLD123", store.KeyAwaitingCode: true}
	before := sc.Clone()

	for _, msg := range []string{"statut du colis", "combien d'utilisateurs", "ABC123XYZ", ""} {
		first := c.Classify(msg, sc)
		second := c.Classify(msg, sc)
		assert.Equal(t, first, second, msg)
	}
	assert.Equal(t, before, sc)
}

func TestClassify_AwaitingCodeLeftToDispatcher(t *testing.T) {
	c := DefaultClassifier()
	got := c.Classify("abc123xyz", store.SessionContext{store.KeyAwaitingCode: true})
	assert.Equal(t, ActionUnresolved, got.Action)
}

func TestLoadClassifier(t *testing.T) {
	c, err := LoadClassifier("")
	require.NoError(t, err)
	assert.Equal(t, ActionCountUsers, c.Classify("users", nil).Action)

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	custom := `
tracking_code: '[0-9]{4,}'
categories:
  - name: parcel
    gate: [paquet]
    rules:
      - action: status_colis
        extract_code: true
        patterns: [ou]
      - action: count_colis
`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))
	c, err = LoadClassifier(path)
	require.NoError(t, err)

	got := c.Classify("ou est mon paquet 1234", nil)
	assert.Equal(t, ActionParcelStatus, got.Action)
	assert.Equal(t, "1234", got.TrackingCode())
	assert.Equal(t, ActionCountParcels, c.Classify("paquet", nil).Action)
	assert.Equal(t, ActionUnresolved, c.Classify("users", nil).Action)

	_, err = LoadClassifier(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRulesErrors(t *testing.T) {
	cases := map[string]string{
		"yaml":        "categories: [",
		"no code":     "categories: []",
		"bad code":    "tracking_code: '['",
		"unknown":     "tracking_code: 'X'\ncategories:\n  - name: a\n    rules:\n      - action: fly\n",
		"bad pattern": "tracking_code: 'X'\ncategories:\n  - name: a\n    rules:\n      - action: login\n        patterns: ['(']\n",
		"bad gate":    "tracking_code: 'X'\ncategories:\n  - name: a\n    gate: ['[']\n",
	}
	for name, doc := range cases {
		_, err := ParseRules([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestClassify_CodeSharedAcrossRules(t *testing.T) {
	c := DefaultClassifier()

	got := c.Classify("colis XYZ789", nil)
	assert.Equal(t, ActionParcelStatus, got.Action)
	assert.Equal(t, "XYZ789", got.TrackingCode())

	got = c.Classify("combien d'utilisateurs ABC123", nil)
	assert.Equal(t, ActionCountUsers, got.Action)
	assert.Empty(t, got.Details)
}
