package fallback

// The canned case set mirrors the structure the live agent produces:
// each case has preconditions, steps, and expected results, and each of
// those is a named section holding typed components.

// Component is one executable unit inside a case section.
type Component struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Section is a named, expandable group of components.
type Section struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Expanded   bool        `json:"expanded"`
	Components []Component `json:"components"`
}

// Case is one structured test case.
type Case struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Preconditions   []Section `json:"preconditions"`
	Steps           []Section `json:"steps"`
	ExpectedResults []Section `json:"expectedResults"`
}

var cannedCases = []Case{
	{
		ID:   "TC001",
		Name: "User login succeeds",
		Preconditions: []Section{{
			ID: "pre1", Name: "User account is registered",
			Components: []Component{{
				ID: "prec1", Type: "api", Name: "API call - check user exists",
				Params: map[string]any{"method": "GET", "url": "/api/users/check", "expected": true},
			}},
		}},
		Steps: []Section{
			{
				ID: "s1", Name: "Open the login page", Expanded: true,
				Components: []Component{{
					ID: "c1", Type: "api", Name: "API call - fetch login page",
					Params: map[string]any{"method": "GET", "url": "/login"},
				}},
			},
			{
				ID: "s2", Name: "Enter username and password",
				Components: []Component{
					{
						ID: "c2", Type: "input", Name: "Enter username",
						Params: map[string]any{"selector": "#username", "value": "testuser"},
					},
					{
						ID: "c3", Type: "input", Name: "Enter password",
						Params: map[string]any{"selector": "#password", "value": "password123"},
					},
				},
			},
			{
				ID: "s3", Name: "Click the login button",
				Components: []Component{{
					ID: "c4", Type: "button", Name: "Click login",
					Params: map[string]any{"selector": "#login-btn", "action": "click"},
				}},
			},
		},
		ExpectedResults: []Section{{
			ID: "exp1", Name: "User lands on the dashboard",
			Components: []Component{
				{
					ID: "expc1", Type: "assert", Name: "Assert - URL is correct",
					Params: map[string]any{"type": "equals", "expected": "/dashboard"},
				},
				{
					ID: "expc2", Type: "assert", Name: "Assert - user info is visible",
					Params: map[string]any{"type": "exists", "expected": ".user-info"},
				},
			},
		}},
	},
	{
		ID:   "TC002",
		Name: "User login fails with wrong password",
		Preconditions: []Section{{
			ID: "pre2", Name: "Account exists but the password is wrong",
			Components: []Component{{
				ID: "prec2", Type: "api", Name: "API call - verify user exists",
				Params: map[string]any{"method": "GET", "url": "/api/users/testuser", "expected": true},
			}},
		}},
		Steps: []Section{
			{
				ID: "s4", Name: "Open the login page",
				Components: []Component{{
					ID: "c5", Type: "api", Name: "API call - fetch login page",
					Params: map[string]any{"method": "GET", "url": "/login"},
				}},
			},
			{
				ID: "s5", Name: "Enter the wrong password",
				Components: []Component{
					{
						ID: "c6", Type: "input", Name: "Enter username",
						Params: map[string]any{"selector": "#username", "value": "testuser"},
					},
					{
						ID: "c7", Type: "input", Name: "Enter wrong password",
						Params: map[string]any{"selector": "#password", "value": "wrongpassword"},
					},
				},
			},
			{
				ID: "s6", Name: "Click the login button",
				Components: []Component{{
					ID: "c8", Type: "button", Name: "Click login",
					Params: map[string]any{"selector": "#login-btn", "action": "click"},
				}},
			},
		},
		ExpectedResults: []Section{{
			ID: "exp2", Name: "A wrong-password message is shown",
			Components: []Component{
				{
					ID: "expc3", Type: "assert", Name: "Assert - error message is shown",
					Params: map[string]any{"type": "contains", "expected": "wrong password"},
				},
				{
					ID: "expc4", Type: "assert", Name: "Assert - still on the login page",
					Params: map[string]any{"type": "equals", "expected": "/login"},
				},
			},
		}},
	},
	{
		ID:   "TC003",
		Name: "Search returns results",
		Preconditions: []Section{{
			ID: "pre3", Name: "User is logged in",
			Components: []Component{{
				ID: "prec3", Type: "api", Name: "API call - verify login state",
				Params: map[string]any{"method": "GET", "url": "/api/auth/status", "expected": "authenticated"},
			}},
		}},
		Steps: []Section{
			{
				ID: "s7", Name: "Open the search page",
				Components: []Component{{
					ID: "c9", Type: "api", Name: "API call - fetch search page",
					Params: map[string]any{"method": "GET", "url": "/search"},
				}},
			},
			{
				ID: "s8", Name: "Enter the search keyword",
				Components: []Component{{
					ID: "c10", Type: "input", Name: "Enter search term",
					Params: map[string]any{"selector": "#search-input", "value": "test keyword"},
				}},
			},
			{
				ID: "s9", Name: "Click the search button",
				Components: []Component{{
					ID: "c11", Type: "button", Name: "Click search",
					Params: map[string]any{"selector": "#search-btn", "action": "click"},
				}},
			},
		},
		ExpectedResults: []Section{{
			ID: "exp3", Name: "Search results are shown",
			Components: []Component{
				{
					ID: "expc5", Type: "assert", Name: "Assert - result list exists",
					Params: map[string]any{"type": "exists", "expected": ".search-results"},
				},
				{
					ID: "expc6", Type: "assert", Name: "Assert - result count above zero",
					Params: map[string]any{"type": "greater_than", "expected": 0},
				},
			},
		}},
	},
}
