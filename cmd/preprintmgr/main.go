package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/go-while/go-preprint/internal/config"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/models"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-preprint Manager (version: %s)", config.AppVersion)
	var (
		createAccount = flag.Bool("create", false, "Create a new account")
		listAccounts  = flag.Bool("list", false, "List all accounts")
		deleteAccount = flag.Bool("delete", false, "Delete an account")
		updateAccount = flag.Bool("update", false, "Update an account's password")
		publish       = flag.Int64("publish", 0, "Publish the article with this id")
		publishAt     = flag.String("at", "", "Publication time for -publish in RFC3339 (default: now)")
		addGalley     = flag.Int64("add-galley", 0, "Attach a galley file to the article with this id")
		galleyType    = flag.String("galley-type", models.GalleyTypePDF, "Galley type for -add-galley (pdf, html, xml)")
		galleyURL     = flag.String("galley-url", "", "File url for -add-galley")
		galleyLabel   = flag.String("galley-label", "", "Label for -add-galley")
		email         = flag.String("email", "", "Email for account operations")
		first         = flag.String("first", "", "First name for account creation")
		last          = flag.String("last", "", "Last name for account creation")
		institution   = flag.String("institution", "", "Institution for account creation")
		orcid         = flag.String("orcid", "", "ORCID for account creation")
		dbURL         = flag.String("db", "", "Database url (default: sqlite3:data/preprints.sq3)")
	)
	flag.Parse()

	if !*createAccount && !*listAccounts && !*deleteAccount && !*updateAccount && *publish == 0 && *addGalley == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -email jane@example.org -first Jane -last Doe -institution \"Example University\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -update -email jane@example.org\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -delete -email jane@example.org\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -publish 12\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -add-galley 12 -galley-url /files/12.pdf -galley-label PDF\n", os.Args[0])
		os.Exit(1)
	}

	mainConfig := config.NewDefaultConfig()
	if err := mainConfig.LoadEnv(".env"); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	if *dbURL != "" {
		mainConfig.Database.URL = *dbURL
	}
	dbConfig, err := database.ConfigFromURL(mainConfig.Database.URL)
	if err != nil {
		log.Fatalf("Invalid database url: %v", err)
	}
	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	switch {
	case *createAccount:
		if *email == "" {
			log.Fatal("Email is required for account creation")
		}
		account := &models.Account{
			Email:       *email,
			FirstName:   *first,
			LastName:    *last,
			Institution: *institution,
			ORCID:       *orcid,
		}
		if err := createNewAccount(db, account); err != nil {
			log.Fatalf("Failed to create account: %v", err)
		}

	case *listAccounts:
		if err := listAllAccounts(db); err != nil {
			log.Fatalf("Failed to list accounts: %v", err)
		}

	case *deleteAccount:
		if *email == "" {
			log.Fatal("Email is required for account deletion")
		}
		if err := deleteExistingAccount(db, *email); err != nil {
			log.Fatalf("Failed to delete account: %v", err)
		}

	case *updateAccount:
		if *email == "" {
			log.Fatal("Email is required for account update")
		}
		if err := updateAccountPassword(db, *email); err != nil {
			log.Fatalf("Failed to update account: %v", err)
		}

	case *publish > 0:
		at := time.Now()
		if *publishAt != "" {
			at, err = time.Parse(time.RFC3339, *publishAt)
			if err != nil {
				log.Fatalf("Invalid -at time: %v", err)
			}
		}
		if err := db.PublishArticle(*publish, at); err != nil {
			log.Fatalf("Failed to publish article: %v", err)
		}
		fmt.Printf("✅ Article %d published at %s\n", *publish, at.UTC().Format(time.RFC3339))

	case *addGalley > 0:
		if *galleyURL == "" {
			log.Fatal("-galley-url is required for -add-galley")
		}
		if _, err := db.GetArticleByID(*addGalley); err != nil {
			log.Fatalf("Article %d: %v", *addGalley, err)
		}
		g := &models.Galley{ArticleID: *addGalley, Type: *galleyType, Label: *galleyLabel, FileURL: *galleyURL}
		if err := db.InsertGalley(g); err != nil {
			log.Fatalf("Failed to add galley: %v", err)
		}
		fmt.Printf("✅ Galley %d added to article %d\n", g.ID, *addGalley)
	}
}

// readPassword prompts twice and checks both entries match
func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if string(password) != string(confirmPassword) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters long")
	}
	return password, nil
}

func createNewAccount(db *database.Database, account *models.Account) error {
	if _, err := db.GetAccountByEmail(account.Email); err == nil {
		return fmt.Errorf("email '%s' already exists", account.Email)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	account.PasswordHash = string(hashedPassword)

	if err := db.InsertAccount(account); err != nil {
		return fmt.Errorf("failed to insert account: %v", err)
	}
	fmt.Printf("✅ Account '%s' (ID: %d) created successfully\n", account.Email, account.ID)
	return nil
}

func listAllAccounts(db *database.Database) error {
	accounts, err := db.ListAccounts()
	if err != nil {
		return fmt.Errorf("failed to get accounts: %v", err)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found")
		return nil
	}

	fmt.Printf("Found %d accounts:\n\n", len(accounts))
	fmt.Printf("%-4s %-30s %-25s %-25s %s\n", "ID", "Email", "Name", "Institution", "Created")
	fmt.Printf("%-4s %-30s %-25s %-25s %s\n", "----", "-----", "----", "-----------", "-------")
	for _, a := range accounts {
		fmt.Printf("%-4d %-30s %-25s %-25s %s\n",
			a.ID,
			truncate(a.Email, 30),
			truncate(a.FullName(), 25),
			truncate(a.Institution, 25),
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func deleteExistingAccount(db *database.Database, email string) error {
	account, err := db.GetAccountByEmail(email)
	if err != nil {
		return fmt.Errorf("account '%s' not found", email)
	}

	fmt.Printf("Are you sure you want to delete account '%s' (ID: %d)? Owned preprints are kept. [y/N]: ", account.Email, account.ID)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println("Account deletion cancelled")
		return nil
	}

	if err := db.DeleteAccount(account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %v", err)
	}
	fmt.Printf("✅ Account '%s' (ID: %d) deleted\n", account.Email, account.ID)
	return nil
}

func updateAccountPassword(db *database.Database, email string) error {
	account, err := db.GetAccountByEmail(email)
	if err != nil {
		return fmt.Errorf("account '%s' not found", email)
	}

	password, err := readPassword(fmt.Sprintf("Enter new password for '%s': ", account.Email))
	if err != nil {
		return err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	if err := db.UpdateAccountPassword(account.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}
	fmt.Printf("✅ Password updated successfully for '%s'\n", account.Email)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
