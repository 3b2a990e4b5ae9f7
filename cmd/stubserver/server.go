package main

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/most4f4/chowhub/internal/notify"
)

// The stub serves just enough of the ChowHub API to run the client against
// locally: login, catalog, tax rate, order creation with ingredient-driven
// availability, and the notification websocket.

type stubUser struct {
	ID                 string `json:"id"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	RestaurantID       string `json:"restaurantId"`
	RestaurantUsername string `json:"restaurantUsername"`

	passwordHash []byte
}

type stubIngredient struct {
	ID    string
	Name  string
	Stock int
}

type stubVariation struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	IsAvailable bool            `json:"isAvailable"`
	Ingredients []ingredientRef `json:"ingredients"`
}

type ingredientRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type stubMenuItem struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Variations  []stubVariation `json:"variations"`
}

type stubCategory struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type server struct {
	log    *slog.Logger
	secret []byte

	mu          sync.Mutex
	users       map[string]*stubUser // keyed by restaurantUsername/username
	menuItems   []stubMenuItem
	categories  []stubCategory
	ingredients map[string]*stubIngredient
	taxPercent  float64

	hub *hub
}

func userKey(restaurant, username string) string { return restaurant + "/" + username }

func newServer(secret string, log *slog.Logger) *server {
	if log == nil {
		log = slog.Default()
	}
	s := &server{
		log:         log,
		secret:      []byte(secret),
		users:       map[string]*stubUser{},
		ingredients: map[string]*stubIngredient{},
		taxPercent:  13,
		hub:         newHub(log),
	}
	s.seed()
	go s.hub.run()
	return s
}

// close stops the notification hub; the http server shuts down separately.
func (s *server) close() { s.hub.stop() }

func (s *server) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	s.users[userKey("acme", "alex")] = &stubUser{
		ID: "u1", FirstName: "Alex", LastName: "Kim", Username: "alex",
		Role: "manager", RestaurantID: "r1", RestaurantUsername: "acme",
		passwordHash: hash,
	}
	s.users[userKey("acme", "sam")] = &stubUser{
		ID: "u2", FirstName: "Sam", LastName: "Diaz", Username: "sam",
		Role: "staff", RestaurantID: "r1", RestaurantUsername: "acme",
		passwordHash: hash,
	}

	s.ingredients["i1"] = &stubIngredient{ID: "i1", Name: "beef patty", Stock: 10}
	s.ingredients["i2"] = &stubIngredient{ID: "i2", Name: "espresso shot", Stock: 2}

	s.categories = []stubCategory{
		{ID: "c1", Name: "Mains"},
		{ID: "c2", Name: "Drinks"},
	}
	s.menuItems = []stubMenuItem{
		{
			ID: "m1", Name: "Classic Burger", Category: "c1",
			Description: "House patty, brioche bun",
			Variations: []stubVariation{
				{ID: "v1", Name: "Single", Price: dec("9.99"), Cost: dec("3.10"), IsAvailable: true,
					Ingredients: []ingredientRef{{ID: "i1", Name: "beef patty"}}},
				{ID: "v2", Name: "Double", Price: dec("13.49"), Cost: dec("5.20"), IsAvailable: true,
					Ingredients: []ingredientRef{{ID: "i1", Name: "beef patty"}}},
			},
		},
		{
			ID: "m2", Name: "Latte", Category: "c2",
			Description: "Double shot, steamed milk",
			Variations: []stubVariation{
				{ID: "v1", Name: "Regular", Price: dec("4.50"), Cost: dec("1.05"), IsAvailable: true,
					Ingredients: []ingredientRef{{ID: "i2", Name: "espresso shot"}}},
			},
		},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.POST("/api/login", s.handleLogin)

	auth := r.Group("/api", s.authRequired())
	auth.GET("/menu-management", s.handleMenuItems)
	auth.GET("/categories", s.handleCategories)
	auth.GET("/restaurant/:id", s.handleRestaurant)
	auth.POST("/order/create-order", s.handleCreateOrder)
	auth.GET("/ws/notifications", s.handleNotifications)

	return r
}

type claims struct {
	UserID             string `json:"userId"`
	Role               string `json:"role"`
	RestaurantUsername string `json:"restaurantUsername"`
	jwt.RegisteredClaims
}

func (s *server) issueToken(u *stubUser) (string, error) {
	c := claims{
		UserID:             u.ID,
		Role:               u.Role,
		RestaurantUsername: u.RestaurantUsername,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			// Browser websocket clients cannot set headers; accept ?token=.
			if t := c.Query("token"); t != "" {
				header = "Bearer " + t
			}
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		parsed := &claims{}
		token, err := jwt.ParseWithClaims(tokenStr, parsed, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("userId", parsed.UserID)
		c.Next()
	}
}

type loginRequest struct {
	RestaurantUsername string `json:"restaurantUsername" binding:"required"`
	Username           string `json:"username" binding:"required"`
	Password           string `json:"password" binding:"required"`
}

func (s *server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	user, ok := s.users[userKey(req.RestaurantUsername, req.Username)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *server) handleMenuItems(c *gin.Context) {
	s.mu.Lock()
	items := make([]stubMenuItem, len(s.menuItems))
	copy(items, s.menuItems)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"menuItems": items})
}

func (s *server) handleCategories(c *gin.Context) {
	s.mu.Lock()
	categories := make([]stubCategory, len(s.categories))
	copy(categories, s.categories)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *server) handleRestaurant(c *gin.Context) {
	s.mu.Lock()
	percent := s.taxPercent
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"restaurant": gin.H{
		"_id":            c.Param("id"),
		"taxRatePercent": percent,
	}})
}

type orderLineItemRequest struct {
	MenuItemID    string `json:"menuItemId" binding:"required"`
	Name          string `json:"name" binding:"required"`
	VariationName string `json:"variationName" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	Price         string `json:"price" binding:"required"`
	SubTotal      string `json:"subTotal" binding:"required"`
}

type createOrderRequest struct {
	Reference      string                 `json:"reference"`
	OrderLineItems []orderLineItemRequest `json:"orderLineItems" binding:"required,min=1,dive"`
	Subtotal       string                 `json:"subtotal" binding:"required"`
	Tax            string                 `json:"tax" binding:"required"`
	Total          string                 `json:"total" binding:"required"`
	Comment        string                 `json:"comment"`
}

func (s *server) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	for _, line := range req.OrderLineItems {
		s.consumeIngredients(line.MenuItemID, line.VariationName, line.Quantity)
	}
	s.mu.Unlock()

	s.hub.publish(notify.Notification{
		ID:        uuid.NewString(),
		Type:      "order",
		Message:   "order placed: " + req.Total,
		CreatedAt: time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": uuid.NewString()})
}

// consumeIngredients walks the ordered variation's ingredients and deducts
// stock; a depleted ingredient flips every variation using it to
// unavailable. Caller holds s.mu.
func (s *server) consumeIngredients(menuItemID, variationName string, qty int) {
	for i := range s.menuItems {
		if s.menuItems[i].ID != menuItemID {
			continue
		}
		for j := range s.menuItems[i].Variations {
			v := &s.menuItems[i].Variations[j]
			if v.Name != variationName {
				continue
			}
			for _, ref := range v.Ingredients {
				ing, ok := s.ingredients[ref.ID]
				if !ok {
					continue
				}
				ing.Stock -= qty
				if ing.Stock <= 0 {
					ing.Stock = 0
					s.disableVariationsUsing(ref.ID)
					s.hub.publish(notify.Notification{
						ID:        uuid.NewString(),
						Type:      "low-stock",
						Message:   ing.Name + " is out of stock",
						CreatedAt: time.Now(),
					})
				}
			}
		}
	}
}

func (s *server) disableVariationsUsing(ingredientID string) {
	for i := range s.menuItems {
		for j := range s.menuItems[i].Variations {
			v := &s.menuItems[i].Variations[j]
			for _, ref := range v.Ingredients {
				if ref.ID == ingredientID {
					v.IsAvailable = false
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *server) handleNotifications(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.register <- conn
	// Reads only serve to detect the peer going away.
	go func() {
		defer func() { s.hub.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// hub fans notifications out to every connected dashboard.
type hub struct {
	log        *slog.Logger
	clients    map[*websocket.Conn]bool
	broadcast  chan notify.Notification
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
}

func newHub(log *slog.Logger) *hub {
	return &hub{
		log:        log,
		clients:    map[*websocket.Conn]bool{},
		broadcast:  make(chan notify.Notification, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// stop ends the run loop and closes every client connection.
func (h *hub) stop() { close(h.done) }

func (h *hub) publish(n notify.Notification) {
	select {
	case h.broadcast <- n:
	default:
		h.log.Warn("notification dropped, hub backlog full")
	}
}

func (h *hub) run() {
	for {
		select {
		case <-h.done:
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if h.clients[conn] {
				delete(h.clients, conn)
				conn.Close()
			}
		case n := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(n); err != nil {
					h.log.Warn("ws write failed", slog.Any("err", err))
					conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}
