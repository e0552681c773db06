package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"newsroom/internal/client"
)

// newSession builds the session state machine backed by the file token
// store and starts background verification of any stored token.
func newSession(ctx context.Context) (*client.Session, *client.API, error) {
	tokenPath, err := client.DefaultTokenPath()
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	api := client.NewAPI(serverURL)
	session := client.NewSession(api, client.NewFileTokenStore(tokenPath), logger)
	session.Start(ctx)
	return session, api, nil
}

// runGuarded runs fn behind the route guard: it waits for the session to
// resolve and refuses to run for an anonymous session.
func runGuarded(cmd *cobra.Command, fn func(ctx context.Context, session *client.Session, api *client.API) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	session, api, err := newSession(ctx)
	if err != nil {
		return err
	}

	guard := client.NewGuard(session)
	return guard.Run(ctx, func(ctx context.Context) error {
		return fn(ctx, session, api)
	})
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <email> <password>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			session, _, err := newSession(ctx)
			if err != nil {
				return err
			}

			result := session.Register(ctx, args[0], args[1], args[2])
			if !result.OK {
				return fmt.Errorf("registration failed: %s", result.Message)
			}
			fmt.Println(result.Message)
			fmt.Println("Now log in with `newsctl login`.")
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			session, _, err := newSession(ctx)
			if err != nil {
				return err
			}

			result := session.Login(ctx, args[0], args[1])
			if !result.OK {
				return fmt.Errorf("login failed: %s", result.Message)
			}

			// Login re-enters verification; wait for the server-confirmed
			// identity before reporting success.
			state, err := session.WaitResolved(ctx)
			if err != nil {
				return err
			}
			if state != client.StateAuthenticated {
				return fmt.Errorf("login verification failed, please try again")
			}
			fmt.Printf("Logged in as %s.\n", session.User().Username)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			session, _, err := newSession(ctx)
			if err != nil {
				return err
			}
			session.Logout(ctx)
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func(ctx context.Context, session *client.Session, _ *client.API) error {
				user := session.User()
				fmt.Printf("%s <%s> (%s)\n", user.Username, user.Email, user.Role)
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles, optionally filtered by a search query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			api := client.NewAPI(serverURL)
			articles, err := api.ListArticles(ctx, query)
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				fmt.Println("No articles found.")
				return nil
			}
			for _, article := range articles {
				fmt.Printf("%s  [%s] %s by %s (%s)\n",
					article.ID, article.Category, article.Title, article.Author, article.PublishedDate)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive substring to search for")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			api := client.NewAPI(serverURL)
			article, err := api.GetArticle(ctx, args[0])
			if err != nil {
				return err
			}
			printArticle(article)
			return nil
		},
	}
}

func createCmd() *cobra.Command {
	var title, content, category, imageURL string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func(ctx context.Context, session *client.Session, api *client.API) error {
				input := client.ArticleInput{
					Title:    &title,
					Content:  &content,
					Category: &category,
				}
				if imageURL != "" {
					input.ImageURL = &imageURL
				}
				article, err := api.CreateArticle(ctx, session.Token(), input)
				if err != nil {
					return err
				}
				fmt.Printf("Created article %s.\n", article.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "article title")
	cmd.Flags().StringVar(&content, "content", "", "article body")
	cmd.Flags().StringVar(&category, "category", "", "article category")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "image URL (optional)")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("content")
	cmd.MarkFlagRequired("category")
	return cmd
}

func updateCmd() *cobra.Command {
	var title, content, category, imageURL string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of an existing article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func(ctx context.Context, session *client.Session, api *client.API) error {
				var input client.ArticleInput
				if cmd.Flags().Changed("title") {
					input.Title = &title
				}
				if cmd.Flags().Changed("content") {
					input.Content = &content
				}
				if cmd.Flags().Changed("category") {
					input.Category = &category
				}
				if cmd.Flags().Changed("image-url") {
					input.ImageURL = &imageURL
				}
				article, err := api.UpdateArticle(ctx, session.Token(), args[0], input)
				if err != nil {
					return err
				}
				fmt.Printf("Updated article %s.\n", article.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "new image URL")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func(ctx context.Context, session *client.Session, api *client.API) error {
				if err := api.DeleteArticle(ctx, session.Token(), args[0]); err != nil {
					return err
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func(ctx context.Context, session *client.Session, api *client.API) error {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()

				url, err := api.UploadMedia(ctx, session.Token(), filepath.Base(args[0]), file)
				if err != nil {
					return err
				}
				fmt.Println(url)
				return nil
			})
		},
	}
}

func printArticle(article *client.Article) {
	fmt.Printf("%s\n%s\n\n", article.Title, strings.Repeat("=", len(article.Title)))
	fmt.Printf("Author:    %s\n", article.Author)
	fmt.Printf("Category:  %s\n", article.Category)
	fmt.Printf("Published: %s\n", article.PublishedDate)
	if article.ImageURL != "" {
		fmt.Printf("Image:     %s\n", article.ImageURL)
	}
	fmt.Printf("\n%s\n", article.Content)
}
