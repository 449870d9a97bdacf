package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

const defaultPDFJSVersion = "3.11.174"

var assets = []struct {
	name    string
	url     string
	minSize int64
}{
	{name: "pdf.min.js", url: "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/%s/pdf.min.js", minSize: 100000},
	{name: "pdf.worker.min.js", url: "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/%s/pdf.worker.min.js", minSize: 300000},
}

var client = &http.Client{Timeout: 60 * time.Second}

// getLatestVersion reads dist-tags.latest of an npm package
func getLatestVersion(pkg string) (string, error) {
	resp, err := client.Get("https://registry.npmjs.org/" + pkg)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	latest := gjson.GetBytes(body, "dist-tags.latest")
	if !latest.Exists() {
		return "", fmt.Errorf("no dist-tags.latest for %s", pkg)
	}
	return latest.String(), nil
}

func downloadFile(url, outPath string, minSize int64) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmpPath := outPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if written < minSize {
		os.Remove(tmpPath)
		return fmt.Errorf("file %s too small (%d bytes)", outPath, written)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return err
	}
	fmt.Printf("Saved to %s (%d bytes)\n", outPath, written)
	return nil
}

func writeVersionsTxt(dir, version string) error {
	content := fmt.Sprintf(`# Vendor Library Versions
# This file tracks the versions of locally stored vendor libraries

pdf.js=%s

# Update URLs
pdf.js.url=https://cdnjs.cloudflare.com/ajax/libs/pdf.js/{version}/pdf.min.js
pdf.js.worker.url=https://cdnjs.cloudflare.com/ajax/libs/pdf.js/{version}/pdf.worker.min.js

# Last updated
last_updated=%s
`, version, time.Now().Format("2006-01-02"))
	return os.WriteFile(filepath.Join(dir, "versions.txt"), []byte(content), 0644)
}

func main() {
	staticDir := flag.String("static", "static", "static directory served by pdfdesk")
	version := flag.String("version", defaultPDFJSVersion, "pdf.js version to fetch")
	latest := flag.Bool("latest", false, "fetch the latest pdfjs-dist release instead of -version")
	flag.Parse()

	vendorDir := filepath.Join(*staticDir, "vendor")
	fmt.Println("🔄 Starting vendor update...")
	if err := os.MkdirAll(vendorDir, 0755); err != nil {
		fmt.Println("❌ Error creating vendor dir:", err)
		os.Exit(1)
	}

	ver := *version
	if *latest {
		fmt.Print("🔍 Fetching latest version for pdfjs-dist... ")
		v, err := getLatestVersion("pdfjs-dist")
		if err != nil {
			fmt.Printf("❌\n   Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s\n", v)
		ver = v
	}

	for _, asset := range assets {
		url := fmt.Sprintf(asset.url, ver)
		out := filepath.Join(vendorDir, asset.name)
		fmt.Printf("📥 Downloading %s to %s...\n", url, out)
		if err := downloadFile(url, out, asset.minSize); err != nil {
			fmt.Println("❌ Error:", err)
			os.Exit(1)
		}
	}

	fmt.Println("📝 Writing versions.txt...")
	if err := writeVersionsTxt(vendorDir, ver); err != nil {
		fmt.Println("❌ Error writing versions.txt:", err)
		os.Exit(1)
	}
	fmt.Println("🎉 Vendor files updated successfully!")
}
