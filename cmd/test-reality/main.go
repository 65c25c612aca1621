package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/lexfrei/go-apic/api/fabric"
)

var (
	controllerURL = flag.String("url", os.Getenv("APIC_URL"), "Controller URL (or use APIC_URL env)")
	username      = flag.String("username", os.Getenv("APIC_USERNAME"), "Username (or use APIC_USERNAME env)")
	password      = flag.String("password", os.Getenv("APIC_PASSWORD"), "Password (or use APIC_PASSWORD env, prompted when unset)")
	verifyTLS     = flag.Bool("verify-tls", false, "Verify the controller certificate")
	verbose       = flag.Bool("verbose", false, "Verbose output with a JSON sample per query")
)

// TestResult is the outcome of one read-only query.
type TestResult struct {
	Query      string
	Success    bool
	Error      string
	Issues     []string
	JSONSample string
	Duration   time.Duration
	Count      int
}

func main() {
	flag.Parse()

	if *password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := readPassword()
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
		*password = secret
	}

	if *controllerURL == "" || *username == "" || *password == "" {
		log.Fatal("Controller URL and credentials are required. Use -url/-username/-password or APIC_* environment variables")
	}

	fmt.Println("🧪 Testing go-apic against reality...")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	client, err := fabric.NewWithConfig(&fabric.ClientConfig{
		ControllerURL:      *controllerURL,
		InsecureSkipVerify: !*verifyTLS,
		MaxRetries:         2,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	fmt.Println("📡 Logging in to controller...")
	if _, err := client.Login(ctx, *username, *password); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	fmt.Printf("   Controller: %s\n\n", client.Session().BaseURL)

	results := []TestResult{}

	// Fabric topology, following the first pod and leaf found
	pods, result := run(ctx, "ListPods", "fabricPod", client.ListPods)
	results = append(results, result)

	if len(pods) > 0 {
		podDN := pods[0].DN()

		_, result = run(ctx, "ListSwitches", "fabricNode", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListSwitches(ctx, podDN)
		})
		results = append(results, result)

		_, result = run(ctx, "ListSpines", "fabricNode", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListSpines(ctx, podDN)
		})
		results = append(results, result)

		var leafs []fabric.ManagedObject
		leafs, result = run(ctx, "ListLeafs", "fabricNode", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListLeafs(ctx, podDN)
		})
		results = append(results, result)

		if len(leafs) > 0 {
			var interfaces []fabric.ManagedObject
			interfaces, result = run(ctx, "ListInterfaces", "l1PhysIf", func(ctx context.Context) ([]fabric.ManagedObject, error) {
				return client.ListInterfaces(ctx, leafs[0].DN())
			})
			result.Issues = append(result.Issues, checkInterfaceDNs(interfaces)...)
			results = append(results, result)
		}
	}

	// Tenant policy, following the first tenant and application profile found
	tenants, result := run(ctx, "ListTenants", "fvTenant", func(ctx context.Context) ([]fabric.ManagedObject, error) {
		return client.ListTenants(ctx, "")
	})
	results = append(results, result)

	if len(tenants) > 0 {
		tenantDN := tenants[0].DN()

		var aps []fabric.ManagedObject
		aps, result = run(ctx, "ListAppProfiles", "fvAp", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListAppProfiles(ctx, tenantDN, "")
		})
		results = append(results, result)

		if len(aps) > 0 {
			_, result = run(ctx, "ListEPGs", "fvAEPg", func(ctx context.Context) ([]fabric.ManagedObject, error) {
				return client.ListEPGs(ctx, aps[0].DN(), "")
			})
			results = append(results, result)
		}

		_, result = run(ctx, "ListVRFs", "fvCtx", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListVRFs(ctx, tenantDN, "")
		})
		results = append(results, result)

		_, result = run(ctx, "ListBridgeDomains", "fvBD", func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return client.ListBridgeDomains(ctx, tenantDN, "")
		})
		results = append(results, result)
	}

	// Access policies
	for _, q := range []struct {
		name  string
		class string
		list  func(context.Context, string) ([]fabric.ManagedObject, error)
	}{
		{"ListVLANPools", "fvnsVlanInstP", client.ListVLANPools},
		{"ListPhysicalDomains", "physDomP", client.ListPhysicalDomains},
		{"ListAttachEntityProfiles", "infraAttEntityP", client.ListAttachEntityProfiles},
		{"ListAccessInterfacePolicyGroups", "", client.ListAccessInterfacePolicyGroups},
		{"ListAccessInterfaceProfiles", "", client.ListAccessInterfaceProfiles},
	} {
		_, result = run(ctx, q.name, q.class, func(ctx context.Context) ([]fabric.ManagedObject, error) {
			return q.list(ctx, "")
		})
		results = append(results, result)
	}

	if !printSummary(results) {
		os.Exit(1)
	}
}

func readPassword() (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", *username)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "failed to read from terminal")
	}

	return string(secret), nil
}

// run executes a query and checks the shape of every returned object. An
// empty class skips the class check (queries spanning several classes).
func run(
	ctx context.Context, name, class string, query func(context.Context) ([]fabric.ManagedObject, error),
) ([]fabric.ManagedObject, TestResult) {
	start := time.Now()
	result := TestResult{Query: name}

	objects, err := query(ctx)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = describe(err)
		return nil, result
	}

	result.Success = true
	result.Count = len(objects)
	result.Issues = checkObjects(objects, class)

	if *verbose && len(objects) > 0 {
		data, _ := json.MarshalIndent(objects[0], "", "  ")
		result.JSONSample = string(data)
	}

	return objects, result
}

func describe(err error) string {
	var apiErr *fabric.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("controller error %d (HTTP %d): %s", apiErr.Code, apiErr.StatusCode, apiErr.Message)
	}
	return err.Error()
}

// checkObjects reports objects that do not have exactly one class, have an
// unexpected class or carry no dn.
func checkObjects(objects []fabric.ManagedObject, class string) []string {
	var issues []string

	for i, obj := range objects {
		if len(obj) != 1 {
			issues = append(issues, fmt.Sprintf("object %d has %d classes", i, len(obj)))
			continue
		}
		if class != "" && obj.Class() != class {
			issues = append(issues, fmt.Sprintf("object %d has class %s, want %s", i, obj.Class(), class))
		}
		if obj.DN() == "" {
			issues = append(issues, fmt.Sprintf("object %d (%s) has no dn", i, obj.Class()))
		}
	}

	return issues
}

// checkInterfaceDNs reports interface DNs the client cannot parse.
func checkInterfaceDNs(interfaces []fabric.ManagedObject) []string {
	var issues []string

	for _, iface := range interfaces {
		if _, err := fabric.ParseInterfaceDN(iface.DN()); err != nil {
			issues = append(issues, err.Error())
		}
	}

	return issues
}

func printSummary(results []TestResult) bool {
	fmt.Println()
	fmt.Println("📊 Test Summary")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	failed := 0
	totalIssues := 0
	for _, result := range results {
		status := "✅"
		if !result.Success {
			status = "❌"
			failed++
		} else if len(result.Issues) > 0 {
			status = "⚠️"
		}

		fmt.Printf("%s %s (%d objects, %v)\n", status, result.Query, result.Count, result.Duration)

		if result.Error != "" {
			fmt.Printf("   Error: %s\n", result.Error)
		}

		if len(result.Issues) > 0 {
			fmt.Printf("   ⚠️  Shape issues: %d\n", len(result.Issues))
			for _, issue := range result.Issues {
				fmt.Printf("      - %s\n", issue)
			}
			totalIssues += len(result.Issues)
		}

		if *verbose && result.JSONSample != "" {
			fmt.Printf("   JSON Sample:\n%s\n", indentJSON(result.JSONSample, "      "))
		}

		fmt.Println()
	}

	fmt.Println("=" + strings.Repeat("=", 60))
	switch {
	case failed > 0:
		fmt.Printf("❌ %d of %d queries failed\n", failed, len(results))
	case totalIssues > 0:
		fmt.Printf("⚠️  Found %d shape issues\n", totalIssues)
	default:
		fmt.Println("✅ All queries passed!")
	}

	return failed == 0
}

func indentJSON(jsonStr, indent string) string {
	lines := strings.Split(jsonStr, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
