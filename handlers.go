package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/titof2710/Loto-sub000/models"
	"github.com/titof2710/Loto-sub000/pkg/loto"
	"github.com/titof2710/Loto-sub000/pkg/lots"
	"github.com/titof2710/Loto-sub000/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/planches", uploadPlancheHandler)
	authGroup.GET("/planches", listPlanchesHandler)
	authGroup.GET("/planches/:id", getPlancheHandler)
	authGroup.POST("/planches/:id/cartons", setCartonHandler)
	authGroup.POST("/tirages", createTirageHandler)
	authGroup.GET("/tirages", listTiragesHandler)
	authGroup.GET("/tirages/:id", getTirageHandler)
	authGroup.POST("/parties", createPartieHandler)
	authGroup.GET("/parties", listPartiesHandler)
	authGroup.GET("/parties/:id", getPartieHandler)
	authGroup.GET("/parties/:id/progress", partieProgressHandler)
	authGroup.POST("/parties/:id/numbers", callNumberHandler)
	authGroup.DELETE("/parties/:id/numbers/last", undoNumberHandler)
	authGroup.POST("/parties/:id/voice", voiceNumbersHandler)
	authGroup.POST("/parties/:id/lot/advance", advanceLotHandler)
	authGroup.GET("/ws/parties/:id", partieWSHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == "administrator"
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := RegisterUser(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id now).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// create refresh token
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// load user
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// create access token
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// cartonRowFromScan turns one digitization result into a persistable carton
// row. A scan that did not produce a full card keeps its partial numbers and
// is flagged failed so the slot shows up for manual completion.
func cartonRowFromScan(plancheID uint, position int, scan ocr.CardScan) models.Carton {
	ct := models.Carton{
		PlancheID:    plancheID,
		Position:     position,
		SerialNumber: scan.SerialNumber,
		Confidence:   scan.Confidence,
		RawText:      scan.RawText,
	}
	if scan.Card != nil {
		grid, _ := json.Marshal(scan.Card.Grid)
		nums, _ := json.Marshal(scan.Card.Numbers)
		ct.Grid = datatypes.JSON(grid)
		ct.Numbers = datatypes.JSON(nums)
		return ct
	}
	nums, _ := json.Marshal(scan.Numbers)
	ct.Numbers = datatypes.JSON(nums)
	ct.Failed = true
	ct.FailedReason = fmt.Sprintf("recognized %d/15 numbers", len(scan.Numbers))
	return ct
}

// uploadPlancheHandler accepts a planche photo, digitizes its 12 cartons and
// stores planche + carton rows. Per-carton scan failures do not fail the
// upload: those slots come back flagged for manual entry.
func uploadPlancheHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 10*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}
	baseDir := filepath.Join(scanBaseDir(), "planches")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	fullPath := filepath.Join(baseDir, file.Filename)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	planche := models.Planche{UserID: user.ID, Name: name, ImagePath: filepath.ToSlash(fullPath)}
	if err := db.Create(&planche).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}

	scans, err := ocr.DigitizePlanche(fullPath, nil)
	if err != nil {
		// keep the planche row: the photo is saved and can be rescanned
		c.JSON(http.StatusOK, gin.H{"id": planche.ID, "error": "digitization failed", "detail": err.Error()})
		return
	}
	complete := 0
	for i, scan := range scans {
		ct := cartonRowFromScan(planche.ID, i, scan)
		if err := db.Create(&ct).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
			return
		}
		if !ct.Failed {
			complete++
		}
	}
	c.JSON(http.StatusOK, gin.H{"id": planche.ID, "cartons": len(scans), "complete": complete})
}

// listPlanchesHandler returns planches; admin sees all, user only own.
func listPlanchesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var planches []models.Planche
	q := db.Model(&models.Planche{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(100).Find(&planches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, planches)
}

// getOwnedPlanche loads a planche with its cartons if admin or owner.
func getOwnedPlanche(c *gin.Context) (*models.Planche, bool) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	var planche models.Planche
	if err := db.Preload("Cartons").First(&planche, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	if !isAdmin(c) && planche.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &planche, true
}

func getPlancheHandler(c *gin.Context) {
	planche, ok := getOwnedPlanche(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, planche)
}

// setCartonHandler replaces one carton slot of a planche with corrected
// content. A carton is never edited cell by cell: the corrected numbers are
// rebuilt into a fresh grid and the old row is replaced wholesale. The body
// carries either the 15 numbers or a raw text blob to extract them from.
func setCartonHandler(c *gin.Context) {
	planche, ok := getOwnedPlanche(c)
	if !ok {
		return
	}
	var req struct {
		Position int    `json:"position"`
		Numbers  []int  `json:"numbers"`
		RawText  string `json:"raw_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Position < 0 || req.Position > 11 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position must be 0..11"})
		return
	}
	numbers := req.Numbers
	if len(numbers) == 0 && req.RawText != "" {
		numbers = ocr.ExtractNumberTokens(req.RawText, nil)
	}
	card, err := loto.BuildCard(numbers)
	if err != nil {
		var ice *loto.InvalidCardError
		if errors.As(err, &ice) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ice.Reason})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, _ := json.Marshal(card.Grid)
	nums, _ := json.Marshal(card.Numbers)
	ct := models.Carton{
		PlancheID:  planche.ID,
		Position:   req.Position,
		Grid:       datatypes.JSON(grid),
		Numbers:    datatypes.JSON(nums),
		Confidence: 1, // human-entered
	}
	// replace, not mutate: drop the old slot then insert the rebuilt carton
	if err := db.Where("planche_id = ? AND position = ?", planche.ID, req.Position).
		Delete(&models.Carton{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if err := db.Create(&ct).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": ct.ID, "numbers": card.Numbers})
}

// createTirageHandler parses a raw prize listing and caches the result.
func createTirageHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name    string `json:"name" binding:"required"`
		RawText string `json:"raw_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := lots.ParseLotList(req.RawText)
	raw, err := json.Marshal(res.Entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failed"})
		return
	}
	t := models.Tirage{
		UserID:      user.ID,
		Name:        req.Name,
		RawText:     req.RawText,
		Lots:        datatypes.JSON(raw),
		Confidence:  res.Confidence,
		Pass:        res.Pass,
		Synthesized: res.Synthesized,
		FetchedAt:   time.Now(),
	}
	if err := db.Create(&t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": t.ID, "lots": len(res.Entries),
		"confidence": res.Confidence, "pass": res.Pass, "synthesized": res.Synthesized,
	})
}

func listTiragesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var tirages []models.Tirage
	q := db.Model(&models.Tirage{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(100).Find(&tirages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, tirages)
}

func getTirageHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var t models.Tirage
	if err := db.First(&t, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && t.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// createPartieHandler starts a game session over a set of planches, with an
// optional prize list.
func createPartieHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name       string `json:"name" binding:"required"`
		PlancheIDs []uint `json:"planche_ids" binding:"required"`
		TirageID   *uint  `json:"tirage_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, pid := range req.PlancheIDs {
		var planche models.Planche
		if err := db.First(&planche, pid).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("planche %d not found", pid)})
			return
		}
		if planche.UserID != user.ID && !isAdmin(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("planche %d forbidden", pid)})
			return
		}
	}
	ids, _ := json.Marshal(req.PlancheIDs)
	calls, _ := json.Marshal([]loto.CalledNumber{})
	p := models.Partie{
		UserID:        user.ID,
		Name:          req.Name,
		Status:        "active",
		PlancheIDs:    datatypes.JSON(ids),
		CalledNumbers: datatypes.JSON(calls),
		TirageID:      req.TirageID,
		LotTier:       string(loto.TierQuine),
	}
	if err := db.Create(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID})
}

func listPartiesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var parties []models.Partie
	q := db.Model(&models.Partie{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(100).Find(&parties).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, parties)
}

// getOwnedPartie loads a partie if admin or owner.
func getOwnedPartie(c *gin.Context) (*models.Partie, bool) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	var p models.Partie
	if err := db.First(&p, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	if !isAdmin(c) && p.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &p, true
}

// partieState assembles the full session view pushed to clients: call log,
// per-carton progress, win history and the lot currently being played.
func partieState(p *models.Partie, s *loto.Session) gin.H {
	state := gin.H{
		"id":       p.ID,
		"name":     p.Name,
		"status":   p.Status,
		"calls":    s.Calls(),
		"progress": s.ProgressAll(),
		"wins":     s.Wins(),
	}
	cur := cursorForPartie(p)
	state["lot_group"] = cur.GroupIndex()
	state["lot_tier"] = cur.TierInGroup()
	if list, err := lotsForPartie(p); err == nil && list != nil {
		if lot, ok := cur.Current(list); ok {
			state["current_lot"] = lot
		}
	}
	return state
}

func getPartieHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, partieState(p, s))
}

func partieProgressHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.ProgressAll())
}

// callNumberHandler appends one called number to the partie. The append, the
// win detection and the write-back run under the partie lock: either the
// whole call lands or nothing does.
func callNumberHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	var req struct {
		Number int    `json:"number" binding:"required"`
		Source string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src := loto.SourceManual
	if req.Source == string(loto.SourceVoice) {
		src = loto.SourceVoice
	}

	mu := lockPartie(p.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := refreshPartie(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed"})
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	call, events, err := s.CallNumber(req.Number, src)
	if err != nil {
		switch {
		case errors.Is(err, loto.ErrAlreadyCalled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, loto.ErrOutOfRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	if err := persistCalls(p, s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	recordWins(p, events)
	if err := advanceCursorOnWins(p, s, events); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	broadcastPartie(p.ID, partieState(p, s))
	c.JSON(http.StatusOK, gin.H{"call": call, "wins": events})
}

// undoNumberHandler removes the most recent call and retracts any win events
// it had triggered.
func undoNumberHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	mu := lockPartie(p.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := refreshPartie(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed"})
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	last, retracted, ok := s.UndoLast()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no calls to undo"})
		return
	}
	if err := persistCalls(p, s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	removeWins(p, retracted)
	broadcastPartie(p.ID, partieState(p, s))
	c.JSON(http.StatusOK, gin.H{"undone": last, "retracted": retracted})
}

// voiceNumbersHandler parses a spoken transcript and calls every number it
// contains. Numbers already called are skipped, not errors: a noisy room
// makes the recognizer repeat itself.
func voiceNumbersHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	var req struct {
		Transcript string `json:"transcript" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	numbers := ocr.ParseSpokenNumbers(req.Transcript)
	if len(numbers) == 0 {
		c.JSON(http.StatusOK, gin.H{"numbers": []int{}, "calls": []loto.CalledNumber{}, "wins": []loto.WinEvent{}})
		return
	}

	mu := lockPartie(p.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := refreshPartie(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed"})
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var calls []loto.CalledNumber
	var wins []loto.WinEvent
	for _, n := range numbers {
		call, events, err := s.CallNumber(n, loto.SourceVoice)
		if err != nil {
			if errors.Is(err, loto.ErrAlreadyCalled) {
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		calls = append(calls, call)
		wins = append(wins, events...)
	}
	if err := persistCalls(p, s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	recordWins(p, wins)
	if err := advanceCursorOnWins(p, s, wins); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	broadcastPartie(p.ID, partieState(p, s))
	c.JSON(http.StatusOK, gin.H{"numbers": numbers, "calls": calls, "wins": wins})
}

// advanceLotHandler moves the prize cursor to the next tier, e.g. when a lot
// was claimed at another table. Leaving a carton plein closes the group: the
// call log is wiped so the next group starts from an empty board.
func advanceLotHandler(c *gin.Context) {
	p, ok := getOwnedPartie(c)
	if !ok {
		return
	}
	mu := lockPartie(p.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := refreshPartie(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed"})
		return
	}
	cur := cursorForPartie(p)
	closingGroup := cur.TierInGroup() == loto.TierCartonPlein
	cur.Advance()
	if err := persistCursor(p, cur); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	s, err := sessionForPartie(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if closingGroup {
		s.ClearCalls()
		if err := persistCalls(p, s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
			return
		}
	}
	broadcastPartie(p.ID, partieState(p, s))
	c.JSON(http.StatusOK, gin.H{"lot_group": cur.GroupIndex(), "lot_tier": cur.TierInGroup()})
}
