// cmd/tools/token-tool/main.go
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"estate-search/internal/common/logger"
	"estate-search/internal/search/codec"
	"estate-search/internal/search/urlsync"
	"estate-search/pkg/registry"
)

func main() {
	encodeCmd := flag.NewFlagSet("encode", flag.ExitOnError)
	decodeCmd := flag.NewFlagSet("decode", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	catalogCmd := flag.NewFlagSet("catalog", flag.ExitOnError)

	filtersJSON := encodeCmd.String("filters", "", "Wire filter object as JSON (reads stdin when empty)")
	basePath := encodeCmd.String("base", "/search", "Search base path for the printed URL path")
	encodeCatalog := encodeCmd.String("catalog", "", "Locality catalog used for normalisation")

	decodeCatalog := decodeCmd.String("catalog", "", "Locality catalog used for normalisation")
	catalogPath := catalogCmd.String("path", "configs/localities.json", "Path to the locality catalog")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		encodeCmd.Parse(os.Args[2:])
		err = encode(*filtersJSON, *basePath, *encodeCatalog)

	case "decode":
		decodeCmd.Parse(os.Args[2:])
		if decodeCmd.NArg() != 1 {
			fmt.Println("Error: decode takes exactly one token.")
			decodeCmd.Usage()
			os.Exit(1)
		}
		err = decode(decodeCmd.Arg(0), *decodeCatalog)

	case "inspect":
		inspectCmd.Parse(os.Args[2:])
		if inspectCmd.NArg() != 1 {
			fmt.Println("Error: inspect takes exactly one token.")
			inspectCmd.Usage()
			os.Exit(1)
		}
		err = inspect(inspectCmd.Arg(0))

	case "catalog":
		catalogCmd.Parse(os.Args[2:])
		err = validateCatalog(*catalogPath)

	case "help":
		fallthrough
	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func newCodec(catalogPath string) (*codec.Codec, error) {
	log := logger.NewStructured("warn", "console", "stderr")
	if catalogPath == "" {
		return codec.New(log), nil
	}
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return codec.New(log, codec.WithCatalog(registry.NewIndex(cat))), nil
}

func encode(filtersJSON, base, catalogPath string) error {
	c, err := newCodec(catalogPath)
	if err != nil {
		return err
	}

	data := []byte(filtersJSON)
	if filtersJSON == "" {
		if data, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("filters must be a JSON object: %w", err)
	}
	f, err := c.FromWireObject(wire)
	if err != nil {
		return err
	}

	token := c.Encode(f)
	fmt.Printf("Token:   %s\n", token)
	fmt.Printf("Path:    %s\n", urlsync.BuildPath(base, token))
	fmt.Printf("Default: %t\n", c.IsDefault(f))
	return nil
}

func decode(token, catalogPath string) error {
	c, err := newCodec(catalogPath)
	if err != nil {
		return err
	}
	f, err := c.DecodeStrict(token)
	if err != nil {
		return err
	}
	return printJSON(codec.ToWire(*f))
}

// inspect walks the decode stages one by one and reports where a token stops
// being valid.
func inspect(token string) error {
	fmt.Printf("Length:    %d\n", len(token))

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(token, "="))
		if err != nil {
			fmt.Printf("Stage:     %s\n", codec.StageBase64)
			return err
		}
		fmt.Println("Alphabet:  standard (non-canonical)")
	}
	fmt.Printf("Deflated:  %d bytes\n", len(raw))

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		fmt.Printf("Stage:     %s\n", codec.StageInflate)
		return err
	}
	defer zr.Close()
	doc, err := io.ReadAll(io.LimitReader(zr, codec.DefaultMaxInflatedBytes+1))
	if err != nil {
		fmt.Printf("Stage:     %s\n", codec.StageInflate)
		return err
	}
	fmt.Printf("Inflated:  %d bytes\n", len(doc))
	fmt.Printf("Document:  %s\n", doc)

	c, err := newCodec("")
	if err != nil {
		return err
	}
	f, err := c.DecodeStrict(token)
	if err != nil {
		return err
	}
	canonical := c.Encode(*f)
	fmt.Printf("Canonical: %t\n", canonical == token)
	if canonical != token {
		fmt.Printf("Rewrite:   %s\n", canonical)
	}
	return nil
}

func validateCatalog(path string) error {
	cat, err := registry.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}
	fmt.Printf("Catalog validation passed: %d cities, %d localities.\n", len(cat.Cities), registry.NewIndex(cat).Len())
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func help() {
	fmt.Println("Usage: token-tool <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  encode   Encode a wire filter object into a search token")
	fmt.Println("  decode   Decode a search token into its full wire filter object")
	fmt.Println("  inspect  Show each decode stage of a token")
	fmt.Println("  catalog  Validate the locality catalog")
	fmt.Println("  help     Show this help message")
	fmt.Println("\nRun 'token-tool <command> -h' for command-specific options.")
}
