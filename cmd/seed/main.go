package main

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/models"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	products := seedProducts(now)
	if _, err := db.Collection("products").DeleteMany(ctx, bson.M{}); err != nil {
		log.Fatal("clearing products failed:", err)
	}
	docs := make([]interface{}, 0, len(products))
	for i := range products {
		docs = append(docs, products[i])
	}
	if _, err := db.Collection("products").InsertMany(ctx, docs); err != nil {
		log.Fatal("seeding products failed:", err)
	}
	log.Printf("seeded %d products", len(products))

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}
	demoUser := models.User{
		FirstName:    "Thabo",
		LastName:     "Mokoena",
		Email:        "demo@blurglobe.co.za",
		PasswordHash: string(hash),
		Addresses:    []models.Address{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := db.Collection("users").DeleteMany(ctx, bson.M{"email": demoUser.Email}); err != nil {
		log.Fatal("clearing demo user failed:", err)
	}
	if _, err := db.Collection("users").InsertOne(ctx, demoUser); err != nil {
		log.Fatal("seeding demo user failed:", err)
	}
	log.Println("seeded demo user:", demoUser.Email)
}

func seedProducts(now time.Time) []models.Product {
	type spec struct {
		name, category, subcategory, gender, season, brand, sku, material string
		price, originalPrice                                              float64
		image                                                             string
		colors                                                            []models.ProductColor
		sizes                                                             []models.ProductSize
		featured, newArrival                                              bool
	}

	specs := []spec{
		{
			name: "Urban Edge Classic Tee", category: "T-Shirts", subcategory: "Basic Tees",
			gender: "men", season: "All Season", brand: "Urban Edge", sku: "UE-TEE-001",
			material: "100% Premium Cotton", price: 299, originalPrice: 399,
			image: "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=800&h=800&fit=crop",
			colors: []models.ProductColor{
				{Name: "Black", Hex: "#000000"},
				{Name: "White", Hex: "#FFFFFF"},
				{Name: "Grey", Hex: "#808080"},
			},
			sizes: []models.ProductSize{
				{Size: "S", Quantity: 25, InStock: true},
				{Size: "M", Quantity: 30, InStock: true},
				{Size: "L", Quantity: 35, InStock: true},
				{Size: "XL", Quantity: 20, InStock: true},
			},
			featured: true, newArrival: true,
		},
		{
			name: "Ethereal Oversized Crop", category: "T-Shirts", subcategory: "Crop Tops",
			gender: "women", season: "Summer", brand: "Ethereal", sku: "ETH-CROP-001",
			material: "60% Cotton, 40% Polyester", price: 349, originalPrice: 449,
			image: "https://images.unsplash.com/photo-1594633312681-425c7b97ccd1?w=800&h=800&fit=crop",
			colors: []models.ProductColor{
				{Name: "Pink", Hex: "#FFC0CB"},
				{Name: "White", Hex: "#FFFFFF"},
				{Name: "Lavender", Hex: "#E6E6FA"},
			},
			sizes: []models.ProductSize{
				{Size: "XS", Quantity: 15, InStock: true},
				{Size: "S", Quantity: 25, InStock: true},
				{Size: "M", Quantity: 30, InStock: true},
				{Size: "L", Quantity: 20, InStock: true},
			},
			featured: true,
		},
		{
			name: "Shadow Realm Hoodie", category: "Hoodies", subcategory: "Pullover Hoodies",
			gender: "men", season: "Winter", brand: "Shadow Realm", sku: "SR-HOOD-001",
			material: "80% Cotton, 20% Polyester Fleece", price: 899, originalPrice: 1199,
			image: "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=800&h=800&fit=crop",
			colors: []models.ProductColor{
				{Name: "Black", Hex: "#000000"},
				{Name: "Dark Grey", Hex: "#2F2F2F"},
				{Name: "Navy", Hex: "#000080"},
			},
			sizes: []models.ProductSize{
				{Size: "M", Quantity: 18, InStock: true},
				{Size: "L", Quantity: 22, InStock: true},
				{Size: "XL", Quantity: 15, InStock: true},
			},
			featured: true,
		},
		{
			name: "Cosmic Dreams Oversized Hoodie", category: "Hoodies", subcategory: "Oversized Hoodies",
			gender: "women", season: "Autumn", brand: "Cosmic", sku: "CD-HOOD-001",
			material: "70% Cotton, 30% Polyester", price: 799,
			image: "https://images.unsplash.com/photo-1578662996442-48f60103fc96?w=800&h=800&fit=crop",
			colors: []models.ProductColor{
				{Name: "Purple", Hex: "#800080"},
				{Name: "Black", Hex: "#000000"},
			},
			sizes: []models.ProductSize{
				{Size: "S", Quantity: 12, InStock: true},
				{Size: "M", Quantity: 16, InStock: true},
				{Size: "L", Quantity: 10, InStock: true},
			},
			newArrival: true,
		},
		{
			name: "Street Runner Joggers", category: "Joggers", subcategory: "Slim Joggers",
			gender: "unisex", season: "All Season", brand: "Urban Edge", sku: "UE-JOG-001",
			material: "88% Polyester, 12% Elastane", price: 549, originalPrice: 699,
			image: "https://images.unsplash.com/photo-1552902865-b72c031ac5ea?w=800&h=800&fit=crop",
			colors: []models.ProductColor{
				{Name: "Black", Hex: "#000000"},
				{Name: "Olive", Hex: "#808000"},
			},
			sizes: []models.ProductSize{
				{Size: "S", Quantity: 20, InStock: true},
				{Size: "M", Quantity: 24, InStock: true},
				{Size: "L", Quantity: 18, InStock: true},
				{Size: "XL", Quantity: 0, InStock: false},
			},
		},
	}

	products := make([]models.Product, 0, len(specs))
	for _, s := range specs {
		total := 0
		for _, size := range s.sizes {
			total += size.Quantity
		}
		products = append(products, models.Product{
			Name:          s.name,
			Slug:          slugify(s.name),
			Price:         s.price,
			OriginalPrice: s.originalPrice,
			Currency:      "ZAR",
			Category:      s.category,
			Subcategory:   s.subcategory,
			Gender:        s.gender,
			Season:        s.season,
			Brand:         s.brand,
			SKU:           s.sku,
			Images: []models.ProductImage{
				{URL: s.image, Alt: s.name, IsPrimary: true},
			},
			Colors:        s.colors,
			Sizes:         s.sizes,
			Material:      s.material,
			InStock:       total > 0,
			TotalQuantity: total,
			IsActive:      true,
			IsFeatured:    s.featured,
			IsNewArrival:  s.newArrival,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return products
}

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
