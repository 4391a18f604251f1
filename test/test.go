package test

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bitrise-io/bitrise/models"
	"github.com/bitrise-io/go-utils/fileutil"
	"github.com/bitrise-io/go-utils/pathutil"
	logV2 "github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/test/testasset"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/test/testreport"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/test/trx"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

// maxTotalXMLSize limits the size of the uploaded report
const maxTotalXMLSize = 100 * 1024 * 1024 // 100 MiB

// parallelFileParses bounds the result files parsed at once.
const parallelFileParses = 4

// FileError is a result file that could not be parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s", filepath.Base(e.Path), e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Collection is everything read from a test results folder.
type Collection struct {
	Change testresult.Change
	// Files are the parsed result files in the order their results were merged.
	Files           []string
	Failures        []FileError
	AttachmentPaths []string
	// StepInfo is read from the step-info.json of the results folder, nil when there is none.
	StepInfo *models.TestResultStepInfo
}

/*
ParseTestResults reads every .trx file of the results folder written by `dotnet test --logger trx`.

	test_results
	├── step-info.json
	├── runner_2024-01-01_10_00_00.trx
	├── runner_2024-01-01_10_00_05.trx
	└── runner_2024-01-01_10_00_00
		└── In
			└── machine
				└── screenshot.png

Files are parsed in parallel, then merged one after the other in file name order,
so a test reported by a later file replaces the earlier result. A file that fails
to parse is logged and listed in Collection.Failures; it never stops the others.
*/
func ParseTestResults(ctx context.Context, resultsDir string, clearPrevious bool, fileRemover trx.FileRemover, logger logV2.Logger) (Collection, error) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return Collection{}, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(resultsDir, entry.Name()))
		}
	}
	sort.Strings(files)

	collection := Collection{
		Change:   testresult.Change{ClearPrevious: clearPrevious},
		StepInfo: readStepInfo(resultsDir, logger),
	}

	converter := trx.NewConverter(fileRemover, logger)
	if !converter.Detect(files) {
		logger.Debugf("No test result files in %s", resultsDir)
		return collection, nil
	}

	files = converter.Files()
	parsed := make([]trx.File, len(files))
	parseErrs := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelFileParses)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed[i], parseErrs[i] = converter.ParseFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Collection{}, err
	}

	var results []testresult.TestResult
	for i, file := range files {
		if parseErrs[i] != nil {
			logger.Errorf("Failed to parse test result file: %s", parseErrs[i])
			collection.Failures = append(collection.Failures, FileError{Path: file, Err: parseErrs[i]})
			continue
		}

		results = testresult.Merge(results, testresult.Change{Results: parsed[i].Results})
		collection.Files = append(collection.Files, file)
	}
	collection.Change.Results = results

	collection.AttachmentPaths = findSupportedAttachments(resultsDir, logger)
	logger.Debugf("found attachments: %d", len(collection.AttachmentPaths))

	return collection, nil
}

// readStepInfo returns the step-info.json of dir, nil if it is missing or unreadable.
func readStepInfo(dir string, logger logV2.Logger) *models.TestResultStepInfo {
	stepInfoPth := filepath.Join(dir, "step-info.json")
	if isExists, err := pathutil.IsPathExists(stepInfoPth); err != nil {
		logger.Warnf("Failed to check if step-info.json file exists in dir: %s: %s", dir, err)
		return nil
	} else if !isExists {
		return nil
	}

	stepInfoFileContent, err := fileutil.ReadBytesFromFile(stepInfoPth)
	if err != nil {
		logger.Warnf("Failed to read step-info.json file in dir: %s, error: %s", dir, err)
		return nil
	}

	var stepInfo *models.TestResultStepInfo
	if err := json.Unmarshal(stepInfoFileContent, &stepInfo); err != nil {
		logger.Warnf("Failed to parse step-info.json file in dir: %s, error: %s", dir, err)
		return nil
	}

	return stepInfo
}

func findSupportedAttachments(testDir string, logger logV2.Logger) (attachmentPaths []string) {
	err := filepath.WalkDir(testDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if testasset.IsSupportedAssetType(path) {
			attachmentPaths = append(attachmentPaths, path)
		}

		return nil
	})

	if err != nil {
		logger.Warnf("Failed to walk test dir (%s): %s", testDir, err)
		return nil
	}

	return
}

// Report is a JUnit report ready for upload.
type Report struct {
	Name            string
	XMLContent      []byte
	AttachmentPaths []string
	StepInfo        models.TestResultStepInfo
}

// NewReport converts the collected results into a JUnit report. The step info
// of the results folder is used when present, defaultStepInfo otherwise.
func NewReport(name string, collection Collection, defaultStepInfo models.TestResultStepInfo) (Report, error) {
	xmlData, err := xml.MarshalIndent(testreport.FromResults(collection.Change.Results), "", " ")
	if err != nil {
		return Report{}, err
	}
	xmlData = append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"), xmlData...)

	stepInfo := defaultStepInfo
	if collection.StepInfo != nil {
		stepInfo = *collection.StepInfo
	}

	return Report{
		Name:            name,
		XMLContent:      xmlData,
		AttachmentPaths: collection.AttachmentPaths,
		StepInfo:        stepInfo,
	}, nil
}

// FileInfo ...
type FileInfo struct {
	FileName string `json:"filename"`
	FileSize int    `json:"filesize"`
}

// UploadURL ...
type UploadURL struct {
	FileName string `json:"filename"`
	URL      string `json:"upload_url"`
}

// UploadRequest ...
type UploadRequest struct {
	Name   string                    `json:"name"`
	Step   models.TestResultStepInfo `json:"step_info"`
	Assets []FileInfo                `json:"assets"`
	FileInfo
}

// UploadResponse ...
type UploadResponse struct {
	ID     string      `json:"id"`
	Assets []UploadURL `json:"assets"`
	UploadURL
}

func httpCall(apiToken, method, url string, input io.Reader, output interface{}, logger logV2.Logger) error {
	if apiToken != "" {
		url = url + "/" + apiToken
	}
	req, err := retryablehttp.NewRequest(method, url, input)
	if err != nil {
		return err
	}

	client := retryhttp.NewClient(logger)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close body: %s", err)
		}
	}()

	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		bodyData, err := io.ReadAll(resp.Body)
		if err != nil {
			logger.Warnf("Failed to read response: %s", err)
			return fmt.Errorf("unsuccessful status code: %d", resp.StatusCode)
		}
		return fmt.Errorf("unsuccessful status code: %d, response: %s", resp.StatusCode, bodyData)
	}

	if output != nil {
		return json.NewDecoder(resp.Body).Decode(&output)
	}
	return nil
}

// Upload registers the report at reportsURL, uploads the XML and the attachments
// to the returned storage URLs, then marks the report as uploaded.
func (r Report) Upload(apiToken, reportsURL string, logger logV2.Logger) error {
	if len(r.XMLContent) > maxTotalXMLSize {
		return fmt.Errorf("the size of the test report (%d MiB) exceeds the maximum allowed size of 100 MiB", len(r.XMLContent)/1024/1024)
	}

	logger.Printf("Uploading: %s", r.Name)

	uploadReq := UploadRequest{
		FileInfo: FileInfo{
			FileName: "test_result.xml",
			FileSize: len(r.XMLContent),
		},
		Name: r.Name,
		Step: r.StepInfo,
	}
	for _, asset := range r.AttachmentPaths {
		fi, err := os.Stat(asset)
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", asset, err)
		}
		uploadReq.Assets = append(uploadReq.Assets, FileInfo{
			FileName: filepath.Base(asset),
			FileSize: int(fi.Size()),
		})
	}

	uploadRequestBodyData, err := json.Marshal(uploadReq)
	if err != nil {
		return fmt.Errorf("failed to json encode upload request: %w", err)
	}

	reportsURL = strings.TrimSuffix(reportsURL, "/")

	var uploadResponse UploadResponse
	if err := httpCall(apiToken, http.MethodPost, reportsURL, bytes.NewReader(uploadRequestBodyData), &uploadResponse, logger); err != nil {
		return fmt.Errorf("failed to initialise test report: %w", err)
	}

	if err := httpCall("", http.MethodPut, uploadResponse.URL, bytes.NewReader(r.XMLContent), nil, logger); err != nil {
		return fmt.Errorf("failed to upload test report xml: %w", err)
	}

	for _, upload := range uploadResponse.Assets {
		for _, file := range r.AttachmentPaths {
			if filepath.Base(file) != upload.FileName {
				continue
			}
			if err := uploadFile(upload.URL, file, logger); err != nil {
				return err
			}
			break
		}
	}

	if err := httpCall(apiToken, http.MethodPatch, reportsURL+"/"+uploadResponse.ID, strings.NewReader(`{"uploaded":true}`), nil, logger); err != nil {
		return fmt.Errorf("failed to finalise test report: %w", err)
	}

	return nil
}

func uploadFile(url, pth string, logger logV2.Logger) error {
	f, err := os.Open(pth)
	if err != nil {
		return fmt.Errorf("failed to open test result attachment (%s): %w", pth, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warnf("Failed to close attachment: %s", err)
		}
	}()

	if err := httpCall("", http.MethodPut, url, f, nil, logger); err != nil {
		return fmt.Errorf("failed to upload test result attachment (%s): %w", pth, err)
	}
	return nil
}
