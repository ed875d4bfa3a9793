package routes

import (
	"dataset-registry/api/rest/handlers"
	"dataset-registry/core/bounty"
	"dataset-registry/core/pipeline"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, pipe *pipeline.Service, bounties *bounty.Manager) {
	datasetHandler := handlers.NewDatasetHandler(pipe)
	nftHandler := handlers.NewNFTHandler(pipe)
	bountyHandler := handlers.NewBountyHandler(bounties)

	api := r.PathPrefix("/v1").Subrouter()

	// Dataset endpoints
	api.HandleFunc("/datasets/generate", datasetHandler.Generate).Methods("POST")
	api.HandleFunc("/datasets/generate-and-mint", datasetHandler.GenerateAndMint).Methods("POST")
	api.HandleFunc("/datasets/test-prompt", datasetHandler.TestPrompt).Methods("POST")
	api.HandleFunc("/datasets/upload", datasetHandler.Upload).Methods("POST")
	api.HandleFunc("/datasets/{tokenId}/preview", datasetHandler.Preview).Methods("GET")
	api.HandleFunc("/marketplace", datasetHandler.Marketplace).Methods("GET")
	api.HandleFunc("/history", datasetHandler.History).Methods("GET")

	// NFT endpoints
	api.HandleFunc("/nft/mint", nftHandler.Mint).Methods("POST")
	api.HandleFunc("/nft/creator/{address}", nftHandler.ByCreator).Methods("GET")
	api.HandleFunc("/nft/{tokenId}", nftHandler.Get).Methods("GET")
	api.HandleFunc("/nft/{tokenId}/donate", nftHandler.Donate).Methods("POST")
	api.HandleFunc("/nft/{tokenId}/donation-info", nftHandler.DonationInfo).Methods("GET")

	// Bounty endpoints
	api.HandleFunc("/bounties", bountyHandler.Create).Methods("POST")
	api.HandleFunc("/bounties", bountyHandler.List).Methods("GET")
	api.HandleFunc("/bounties/creator/{address}", bountyHandler.ByCreator).Methods("GET")
	api.HandleFunc("/bounties/{id}", bountyHandler.Get).Methods("GET")
	api.HandleFunc("/bounties/{id}/contributors", bountyHandler.AddContributor).Methods("POST")
	api.HandleFunc("/bounties/{id}/distribute", bountyHandler.Distribute).Methods("POST")
}
