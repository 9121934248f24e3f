package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           DCA Service API
// @version         0.1.0
// @description     Recurring crypto investment plans with risk-weighted execution amounts.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
