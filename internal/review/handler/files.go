package handler

import (
	"net/http"
	"os"
	"path"

	id "estekhdam/pkg/domain"
)

func (h *Handler) handleDocumentFile(w http.ResponseWriter, r *http.Request) {
	docID, ok := pathID(r, "docID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc, f, err := h.reviews.OpenDocument(r.Context(), id.DocumentID(docID))
	if err != nil {
		h.pages.Fail(w, r, "/queue/docs", err)
		return
	}
	defer f.Close()
	if doc.Mime != "" {
		w.Header().Set("Content-Type", doc.Mime)
	}
	serve(w, r, f, doc.FilePath)
}

func (h *Handler) handleVideoFile(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathID(r, "videoID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	video, f, err := h.reviews.OpenVideo(r.Context(), id.VideoID(videoID))
	if err != nil {
		h.pages.Fail(w, r, "/videos", err)
		return
	}
	defer f.Close()
	serve(w, r, f, video.FilePath)
}

// serve streams f with range support so browsers can seek in videos.
func serve(w http.ResponseWriter, r *http.Request, f *os.File, rel string) {
	info, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, path.Base(rel), info.ModTime(), f)
}
