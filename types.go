package goolstar

// Page is the backend's standard paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Team is a registered team. The backend speaks Spanish; field tags follow
// its wire names.
type Team struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Categoria string `json:"categoria,omitempty"`
	Grupo     string `json:"grupo,omitempty"`
	Logo      string `json:"logo,omitempty"`
	Activo    bool   `json:"activo"`
}

// Player is a rostered player belonging to one team.
type Player struct {
	ID             int64  `json:"id"`
	PrimerNombre   string `json:"primer_nombre"`
	SegundoNombre  string `json:"segundo_nombre,omitempty"`
	PrimerApellido string `json:"primer_apellido"`
	NumeroDorsal   int    `json:"numero_dorsal,omitempty"`
	Equipo         int64  `json:"equipo"`
	EquipoNombre   string `json:"equipo_nombre,omitempty"`
	Goles          int    `json:"goles,omitempty"`
}

// Match is a fixture between two teams, scheduled or completed.
type Match struct {
	ID            int64   `json:"id"`
	Torneo        int64   `json:"torneo,omitempty"`
	Jornada       int     `json:"jornada,omitempty"`
	Equipo1       int64   `json:"equipo_1"`
	Equipo2       int64   `json:"equipo_2"`
	Equipo1Nombre string  `json:"equipo_1_nombre,omitempty"`
	Equipo2Nombre string  `json:"equipo_2_nombre,omitempty"`
	GolesEquipo1  int     `json:"goles_equipo_1"`
	GolesEquipo2  int     `json:"goles_equipo_2"`
	Fecha         string  `json:"fecha,omitempty"`
	Cancha        string  `json:"cancha,omitempty"`
	Completado    bool    `json:"completado"`
	Observaciones *string `json:"observaciones,omitempty"`
}

// Tournament is a competition grouping teams and fixtures.
type Tournament struct {
	ID               int64  `json:"id"`
	Nombre           string `json:"nombre"`
	Categoria        string `json:"categoria,omitempty"`
	FechaInicio      string `json:"fecha_inicio,omitempty"`
	Activo           bool   `json:"activo"`
	TieneEliminacion bool   `json:"tiene_eliminacion,omitempty"`
}

// StandingEntry is one row of a tournament table, computed by the backend.
type StandingEntry struct {
	Equipo            int64  `json:"equipo"`
	EquipoNombre      string `json:"equipo_nombre,omitempty"`
	PartidosJugados   int    `json:"partidos_jugados"`
	PartidosGanados   int    `json:"partidos_ganados"`
	PartidosEmpatados int    `json:"partidos_empatados"`
	PartidosPerdidos  int    `json:"partidos_perdidos"`
	GolesFavor        int    `json:"goles_favor"`
	GolesContra       int    `json:"goles_contra"`
	Puntos            int    `json:"puntos"`
}

// ScorerEntry is one row of a tournament's top-scorers table.
type ScorerEntry struct {
	Jugador       int64  `json:"jugador"`
	JugadorNombre string `json:"jugador_nombre,omitempty"`
	Equipo        int64  `json:"equipo"`
	EquipoNombre  string `json:"equipo_nombre,omitempty"`
	Goles         int    `json:"goles"`
}
