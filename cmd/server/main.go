package main

// @title          Studio API
// @version        1.0
// @description    Backend API for product photo, video and music generation.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	Execute()
}
