package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophfeed/internal/client/api"
)

// getMultiline and getID are indirections used to facilitate testing.
var getMultiline = GetMultiline
var getID = GetID

// ListPosts prints every post as a table.
func (a *App) ListPosts(ctx context.Context) error {
	posts, err := a.api.ListPosts(ctx)
	if err != nil {
		return a.report(ctx, err)
	}
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tLIKES\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Title, p.Author, p.Likes, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// ShowPost prints a single post including its content.
func (a *App) ShowPost(ctx context.Context) error {
	id, err := getID(a.reader, a.out)
	if err != nil {
		return a.report(ctx, err)
	}
	p, err := a.api.GetPost(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}
	a.printPost(p)
	return nil
}

// AddPost publishes a post. The author defaults to the signed in user.
func (a *App) AddPost(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	content, err := getMultiline(a.reader, "Enter content", a.out)
	if err != nil {
		return err
	}

	author := ""
	if snap := a.session.Snapshot(); snap.User != nil {
		author = snap.User.Name
	}

	p, err := a.api.CreatePost(ctx, api.PostInput{Title: &title, Content: &content, Author: &author})
	if err != nil {
		return a.report(ctx, err)
	}
	fmt.Fprintf(a.out, "Post %d created\n", p.ID)
	return nil
}

// EditPost updates the title and content of a post. Empty answers keep the
// current value.
func (a *App) EditPost(ctx context.Context) error {
	id, err := getID(a.reader, a.out)
	if err != nil {
		return a.report(ctx, err)
	}
	title, err := getSimpleText(a.reader, "Enter new title (empty to keep)", a.out)
	if err != nil {
		return err
	}
	content, err := getMultiline(a.reader, "Enter new content (empty to keep)", a.out)
	if err != nil {
		return err
	}

	var in api.PostInput
	if title != "" {
		in.Title = &title
	}
	if content != "" {
		in.Content = &content
	}
	if in.Title == nil && in.Content == nil {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	p, err := a.api.UpdatePost(ctx, id, in)
	if err != nil {
		return a.report(ctx, err)
	}
	fmt.Fprintf(a.out, "Post %d updated\n", p.ID)
	return nil
}

// LikePost adds a like and prints the new count.
func (a *App) LikePost(ctx context.Context) error {
	id, err := getID(a.reader, a.out)
	if err != nil {
		return a.report(ctx, err)
	}
	p, err := a.api.LikePost(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}
	fmt.Fprintf(a.out, "Post %d now has %d likes\n", p.ID, p.Likes)
	return nil
}

// DeletePost removes a post after confirmation.
func (a *App) DeletePost(ctx context.Context) error {
	id, err := getID(a.reader, a.out)
	if err != nil {
		return a.report(ctx, err)
	}
	ok, err := getYesNo(a.reader, fmt.Sprintf("Delete post %d?", id), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.api.DeletePost(ctx, id); err != nil {
		return a.report(ctx, err)
	}
	fmt.Fprintf(a.out, "Post %d deleted\n", id)
	return nil
}

func (a *App) printPost(p *api.Post) {
	fmt.Fprintf(a.out, "#%d %s\n", p.ID, p.Title)
	fmt.Fprintf(a.out, "by %s on %s, %d likes\n\n", p.Author, p.CreatedAt.Format("2006-01-02 15:04"), p.Likes)
	fmt.Fprintln(a.out, p.Content)
}
