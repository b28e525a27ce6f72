package main

var commands = map[string]command{
	"register":       {usage: "Create an account and sign in", run: runRegister},
	"login":          {usage: "Sign in with username or email", run: runLogin},
	"logout":         {usage: "Sign out and forget the stored token", run: runLogout},
	"whoami":         {usage: "Show the signed-in user", run: runWhoami},
	"validate":       {usage: "Check the stored token with the server", run: runValidate},
	"check-username": {usage: "Check whether a username is free", run: runCheckUsername},
	"check-email":    {usage: "Check whether an email is free", run: runCheckEmail},

	"list":   {usage: "List expenses [-category C] [-month]", needsAuth: true, run: runList},
	"show":   {usage: "Show one expense: show <id>", needsAuth: true, run: runShow},
	"add":    {usage: "Add an expense -title T -amount A [-category C] [-date D]", needsAuth: true, run: runAdd},
	"edit":   {usage: "Edit an expense: edit [flags] <id>", needsAuth: true, run: runEdit},
	"delete": {usage: "Delete an expense: delete [-yes] <id>", needsAuth: true, run: runDelete},
	"stats":  {usage: "Show the statistics cards", needsAuth: true, run: runStats},
	"charts": {usage: "Show statistics with category and monthly charts", needsAuth: true, run: runCharts},
	"export": {usage: "Append expenses to the Google Sheet [-category C]", needsAuth: true, run: runExport},

	"profile":        {usage: "Show your profile", needsAuth: true, run: runProfile},
	"update-profile": {usage: "Change profile fields [-username] [-email] [-first] [-last]", needsAuth: true, run: runUpdateProfile},
	"password":       {usage: "Change your password", needsAuth: true, run: runPassword},
	"delete-account": {usage: "Delete your account [-yes]", needsAuth: true, run: runDeleteAccount},
}
