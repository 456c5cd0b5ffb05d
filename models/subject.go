package models

// Subject is a named grouping of modules ("materia"), optionally associated
// with one or more courses. Modulos is ordered; the order is presentation
// order and must survive round trips through the backend.
type Subject struct {
	ID       string   `json:"id"`
	Nombre   string   `json:"nombre"`
	IDCursos []string `json:"id_cursos"`
	Modulos  []string `json:"modulos"`
}

// Module is a unit of course content. URLArchivo is a true ordered list here;
// the legacy single-string "|||" encoding exists only at the backend wire
// (see client package).
type Module struct {
	ID            string   `json:"id"`
	Titulo        string   `json:"titulo"`
	Descripcion   string   `json:"descripcion"`
	IDMateria     string   `json:"id_materia"`
	TipoContenido string   `json:"tipo_contenido"`
	Bibliografia  string   `json:"bibliografia"`
	URLMiniatura  string   `json:"url_miniatura"`
	URLArchivo    []string `json:"url_archivo"`
	URLVideo      []string `json:"url_video"`
}

const ContentTypePDF = "pdf"

type Course struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
}

// ModuleFields carries the mutable part of a Module through create/update.
type ModuleFields struct {
	Titulo       string   `json:"titulo"`
	Descripcion  string   `json:"descripcion"`
	Bibliografia string   `json:"bibliografia"`
	URLMiniatura string   `json:"url_miniatura"`
	URLArchivo   []string `json:"url_archivo"`
	URLVideo     []string `json:"url_video"`
}
