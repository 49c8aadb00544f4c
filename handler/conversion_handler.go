package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"docconverter/apperrors"
	"docconverter/models"
	"docconverter/services"

	"github.com/gorilla/mux"
)

const uploadField = "file"

var errNoFilePart = errors.New("no file part")

// ConversionService is the part of *services.Gateway the HTTP routes use.
type ConversionService interface {
	ConvertUpload(ctx context.Context, dir models.Direction, filename string, src io.Reader) (*services.Output, error)
	ConvertStored(ctx context.Context, name string) (*models.TriggerResult, error)
}

type ConversionHandler struct {
	service     ConversionService
	maxFileSize int64
}

func NewConversionHandler(service ConversionService, maxFileSize int64) *ConversionHandler {
	return &ConversionHandler{service: service, maxFileSize: maxFileSize}
}

// DocxToPDF converts an uploaded .docx and streams back converted.pdf.
func (h *ConversionHandler) DocxToPDF(w http.ResponseWriter, r *http.Request) {
	h.convertUpload(w, r, models.DocxToPDF)
}

// PDFToDocx converts an uploaded .pdf and streams back converted.docx.
func (h *ConversionHandler) PDFToDocx(w http.ResponseWriter, r *http.Request) {
	h.convertUpload(w, r, models.PDFToDocx)
}

func (h *ConversionHandler) convertUpload(w http.ResponseWriter, r *http.Request, dir models.Direction) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	}

	part, err := filePart(r)
	if err != nil {
		if isTooLarge(err) {
			writeText(w, http.StatusBadRequest, h.tooLargeMessage())
			return
		}
		writeText(w, http.StatusBadRequest, missingFileMessage(dir))
		return
	}
	defer part.Close()

	filename := part.FileName()
	if filename == "" && dir == models.DocxToPDF {
		writeText(w, http.StatusBadRequest, "No file selected")
		return
	}

	out, err := h.service.ConvertUpload(r.Context(), dir, filename, part)
	if err != nil {
		h.writeConversionError(w, dir, err)
		return
	}
	defer out.Close()

	f, err := out.Open()
	if err != nil {
		log.Printf("[HTTP] Failed to open output of job %s: %v", out.JobID, err)
		writeText(w, http.StatusInternalServerError, failurePrefix(dir)+err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeText(w, http.StatusInternalServerError, failurePrefix(dir)+err.Error())
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.DownloadName))
	w.Header().Set("X-Job-ID", out.JobID)
	if out.Pages > 0 {
		w.Header().Set("X-Page-Count", strconv.Itoa(out.Pages))
	}
	http.ServeContent(w, r, out.DownloadName, info.ModTime(), f)
}

// Trigger converts <name>.docx from the upload bucket into <name>.pdf in the
// output bucket. Every failure is a 500 with an {"error": ...} body.
func (h *ConversionHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	result, err := h.service.ConvertStored(r.Context(), name)
	if err != nil {
		log.Printf("[HTTP] Trigger %q failed: %v", name, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ConversionHandler) writeConversionError(w http.ResponseWriter, dir models.Direction, err error) {
	switch {
	case isTooLarge(err):
		writeText(w, http.StatusBadRequest, h.tooLargeMessage())
	case apperrors.IsType(err, apperrors.ErrorTypeValidation):
		writeText(w, http.StatusBadRequest, err.Error())
	case apperrors.IsType(err, apperrors.ErrorTypeTimeout), apperrors.IsType(err, apperrors.ErrorTypeBusy):
		log.Printf("[HTTP] %s refused: %v", dir, err)
		writeText(w, apperrors.GetStatusCode(err), err.Error())
	default:
		log.Printf("[HTTP] %s failed: %v", dir, err)
		writeText(w, http.StatusInternalServerError, failurePrefix(dir)+err.Error())
	}
}

func (h *ConversionHandler) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds the %d byte upload limit", h.maxFileSize)
}

// filePart advances the multipart stream to the upload field. The part is
// read straight into scratch space, nothing is buffered in memory or /tmp.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		part.Close()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func missingFileMessage(dir models.Direction) string {
	if dir == models.PDFToDocx {
		return "Missing upload field: file"
	}
	return "No file selected"
}

func failurePrefix(dir models.Direction) string {
	if dir == models.PDFToDocx {
		return "PDF → DOCX failed: "
	}
	return "Conversion failed: "
}
