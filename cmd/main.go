package main

import (
	"cocity-api/app"
)

// @title           CoCity Auth API
// @version         1.0
// @description     Credential verification and token lifecycle service.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
