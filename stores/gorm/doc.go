//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the blog's store interfaces.
// It supports SQLite (the default, a local file database) and PostgreSQL.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: accounts keyed by email
//   - posts: blog posts keyed by an auto-increment id
//
// # Usage
//
//	db, _ := gormstore.Open("sqlite", "blog.db", gormstore.NewLogger(logger.Warn))
//	userStore := gormstore.NewUserStore(db)
//	postStore := gormstore.NewPostStore(db)
package gorm
