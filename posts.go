package oneblog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

type indexPage struct {
	User  *User
	Posts []*Post
}

type postFormPage struct {
	Post  *Post
	Error string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := a.Posts.ListPosts(r.Context())
	if err != nil {
		a.serverError(w, r, "error listing posts", err)
		return
	}
	a.Templates.Render(w, r, "index.html", indexPage{User: CurrentUser(r), Posts: posts})
}

func (a *App) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.Templates.Render(w, r, "create.html", postFormPage{Post: &Post{}})
		return
	}
	title, body, err := parsePostForm(r)
	if err != nil {
		a.Templates.RenderStatus(w, r, http.StatusBadRequest, "create.html", postFormPage{Post: &Post{Title: title, Body: body}, Error: err.Error()})
		return
	}

	post := &Post{Title: title, Body: body, CreatedAt: a.now()}
	if err := a.Posts.CreatePost(r.Context(), post); err != nil {
		a.serverError(w, r, "error creating post", err)
		return
	}
	slog.InfoContext(r.Context(), "created post", "id", post.Id)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleUpdate(w http.ResponseWriter, r *http.Request) {
	post, ok := a.loadPost(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		a.Templates.Render(w, r, "update.html", postFormPage{Post: post})
		return
	}
	title, body, err := parsePostForm(r)
	if err != nil {
		post.Title, post.Body = title, body
		a.Templates.RenderStatus(w, r, http.StatusBadRequest, "update.html", postFormPage{Post: post, Error: err.Error()})
		return
	}

	post.Title, post.Body = title, body
	if err := a.Posts.UpdatePost(r.Context(), post); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, r, "error updating post", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleDelete(w http.ResponseWriter, r *http.Request) {
	post, ok := a.loadPost(w, r)
	if !ok {
		return
	}
	if err := a.Posts.DeletePost(r.Context(), post.Id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, r, "error deleting post", err)
		return
	}
	slog.InfoContext(r.Context(), "deleted post", "id", post.Id)
	http.Redirect(w, r, "/", http.StatusFound)
}

// loadPost fetches the post named by the {id} route variable, answering 404
// when there is none.
func (a *App) loadPost(w http.ResponseWriter, r *http.Request) (*Post, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	post, err := a.Posts.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.NotFound(w, r)
		} else {
			a.serverError(w, r, "error loading post", err)
		}
		return nil, false
	}
	return post, true
}

func parsePostForm(r *http.Request) (title, body string, err error) {
	if err = r.ParseForm(); err != nil {
		return "", "", fmt.Errorf("invalid form data")
	}
	title = strings.TrimSpace(r.PostFormValue("title"))
	body = r.PostFormValue("body")
	switch {
	case title == "":
		err = fmt.Errorf("title is required")
	case len([]rune(title)) > MaxTitleLength:
		err = fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	case len([]rune(body)) > MaxBodyLength:
		err = fmt.Errorf("body must be at most %d characters", MaxBodyLength)
	}
	return title, body, err
}
